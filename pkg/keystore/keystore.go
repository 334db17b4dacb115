package keystore

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// keyPrefix API key 在 badger 中的前缀
const keyPrefix = "apikey/"

// ErrNotOpened 存储未打开
var ErrNotOpened = errors.New("keystore: not opened")

// Store API key -> secret 注册表（Badger）
// 加密由 Badger 选项提供（value log + key registry），不在这一层做。
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil 时不加密
	ReadOnly      bool
	InMemory      bool // 测试用，忽略 Path
}

func Open(opts OpenOptions) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("keystore: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path).WithReadOnly(opts.ReadOnly)
	}
	bopts = bopts.WithLogger(nil)
	if len(opts.EncryptionKey) > 0 {
		// 加密模式下 Badger 需要 index cache
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20) // 100MB
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("keystore: open %s: %w", opts.Path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// storageKey 原样使用 apiKey：签名和订单归属都按请求里的原值，这里不能归一化
func storageKey(apiKey string) ([]byte, error) {
	if apiKey == "" {
		return nil, errors.New("keystore: api key is empty")
	}
	return []byte(keyPrefix + apiKey), nil
}

// Lookup 查询 apiKey 对应的 secret，未注册时 found=false
func (s *Store) Lookup(apiKey string) (secret string, found bool, err error) {
	if s == nil || s.db == nil {
		return "", false, ErrNotOpened
	}
	k, err := storageKey(apiKey)
	if err != nil {
		return "", false, err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			secret = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return secret, found, nil
}

// Register 注册或覆盖 apiKey 的 secret
func (s *Store) Register(apiKey, secret string) error {
	if s == nil || s.db == nil {
		return ErrNotOpened
	}
	k, err := storageKey(apiKey)
	if err != nil {
		return err
	}
	if secret == "" {
		return errors.New("keystore: secret is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(secret))
	})
}

// Revoke 删除 apiKey，不存在时不报错
func (s *Store) Revoke(apiKey string) error {
	if s == nil || s.db == nil {
		return ErrNotOpened
	}
	k, err := storageKey(apiKey)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// List 返回所有已注册的 apiKey（排序后）
func (s *Store) List() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotOpened
	}
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// ParseKey expects 32 bytes (hex or base64). Returns nil if input is empty.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// 先按 hex 解析，避免把 hex 串误当成 base64
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("key must be base64(32 bytes) or hex(32 bytes)")
}
