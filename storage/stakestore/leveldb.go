package stakestore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/0xKurt/FlexStake/core/types"
	"github.com/0xKurt/FlexStake/native/staking"
)

const (
	optionKeyPrefix = "option/"
	stakeKeyPrefix  = "stake/"
	acctKeyPrefix   = "acct/"
	nextIDKey       = "meta/nextOptionID"
	pausedKey       = "meta/emergencyPaused"
)

// LevelDB is a goleveldb-backed implementation of the staking state. Records
// are JSON encoded; the option-id counter and emergency flag live under meta
// keys.
type LevelDB struct {
	mu sync.Mutex
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) the store at the given path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open stake store: %w", err)
	}
	return &LevelDB{db: db}, nil
}

// Close releases the underlying database handle.
func (l *LevelDB) Close() error { return l.db.Close() }

func optionKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", optionKeyPrefix, id))
}

func stakeStoreKey(optionID uint64, owner [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%020d/%x", stakeKeyPrefix, optionID, owner))
}

func acctKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", acctKeyPrefix, addr))
}

func (l *LevelDB) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := l.db.Get(key, nil)
	if err == ldberrors.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (l *LevelDB) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return l.db.Put(key, raw, nil)
}

// OptionGet implements staking.State.
func (l *LevelDB) OptionGet(id uint64) (*staking.Option, bool) {
	opt := new(staking.Option)
	ok, err := l.getJSON(optionKey(id), opt)
	if err != nil || !ok {
		return nil, false
	}
	return opt, true
}

// OptionPut implements staking.State.
func (l *LevelDB) OptionPut(opt *staking.Option) error {
	if opt == nil {
		return staking.ErrOptionNotFound
	}
	return l.putJSON(optionKey(opt.ID), opt)
}

// NextOptionID implements staking.State.
func (l *LevelDB) NextOptionID() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var next uint64 = 1
	raw, err := l.db.Get([]byte(nextIDKey), nil)
	switch {
	case err == ldberrors.ErrNotFound:
	case err != nil:
		return 0, err
	default:
		next = binary.BigEndian.Uint64(raw) + 1
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := l.db.Put([]byte(nextIDKey), buf, nil); err != nil {
		return 0, err
	}
	return next, nil
}

// StakeGet implements staking.State.
func (l *LevelDB) StakeGet(optionID uint64, owner [20]byte) (*staking.Stake, bool) {
	st := new(staking.Stake)
	ok, err := l.getJSON(stakeStoreKey(optionID, owner), st)
	if err != nil || !ok {
		return nil, false
	}
	return st, true
}

// StakePut implements staking.State.
func (l *LevelDB) StakePut(optionID uint64, owner [20]byte, st *staking.Stake) error {
	if st == nil {
		return staking.ErrStakeNotFound
	}
	return l.putJSON(stakeStoreKey(optionID, owner), st)
}

// StakeDelete implements staking.State.
func (l *LevelDB) StakeDelete(optionID uint64, owner [20]byte) error {
	return l.db.Delete(stakeStoreKey(optionID, owner), nil)
}

// GetAccount implements staking.State.
func (l *LevelDB) GetAccount(addr [20]byte) (*types.Account, error) {
	acct := types.NewAccount()
	if _, err := l.getJSON(acctKey(addr), acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// PutAccount implements staking.State.
func (l *LevelDB) PutAccount(addr [20]byte, acct *types.Account) error {
	if acct == nil {
		acct = types.NewAccount()
	}
	return l.putJSON(acctKey(addr), acct)
}

// EmergencyPaused implements staking.State.
func (l *LevelDB) EmergencyPaused() bool {
	raw, err := l.db.Get([]byte(pausedKey), nil)
	if err != nil {
		return false
	}
	return len(raw) == 1 && raw[0] == 1
}

// SetEmergencyPaused implements staking.State.
func (l *LevelDB) SetEmergencyPaused(paused bool) error {
	value := []byte{0}
	if paused {
		value[0] = 1
	}
	return l.db.Put([]byte(pausedKey), value, nil)
}

var _ staking.State = (*LevelDB)(nil)
var _ staking.State = (*Memory)(nil)
