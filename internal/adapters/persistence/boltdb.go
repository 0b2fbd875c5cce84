package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/qantara-pay/settle-engine/internal/domain"
)

const (
	MerchantsBucket = "merchants"
	LinksBucket     = "links"

	DefaultDBPath = "./data/settle-engine.db"
)

// storedMerchant wraps the profile with a tombstone flag. The underlying
// store has no delete primitive, so removals are written as tombstones and
// filtered out on load.
type storedMerchant struct {
	domain.MerchantProfile
	Deleted bool `json:"deleted,omitempty"`
}

type storedLink struct {
	domain.PaymentLink
	Deleted bool `json:"deleted,omitempty"`
}

// Storage persists merchant profiles and payment links. All reads are
// served from an in-memory write-through index loaded once at open; the
// database is the durable log underneath it.
type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string

	mu        sync.RWMutex
	merchants map[uint64]*domain.MerchantProfile
	byOwner   map[string]uint64
	links     map[string]*domain.PaymentLink
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	s := &Storage{
		db:        db,
		dbPath:    dbPath,
		merchants: make(map[uint64]*domain.MerchantProfile),
		byOwner:   make(map[string]uint64),
		links:     make(map[string]*domain.PaymentLink),
	}
	if err := s.loadAll(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("path", dbPath).
		Int("merchants", len(s.merchants)).
		Int("links", len(s.links)).
		Msg("[settleStorage] opened database")
	return s, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) loadAll() error {
	merchants, err := s.db.List(MerchantsBucket)
	if err != nil {
		return fmt.Errorf("failed to list merchants: %w", err)
	}
	for key, value := range merchants {
		var stored storedMerchant
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("key", key).Err(err).Msg("[settleStorage] failed to unmarshal merchant, skipping")
			continue
		}
		if stored.Deleted {
			continue
		}
		profile := stored.MerchantProfile
		s.merchants[profile.MerchantID] = &profile
		if profile.OwnerWallet != "" {
			s.byOwner[profile.OwnerWallet] = profile.MerchantID
		}
	}

	links, err := s.db.List(LinksBucket)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}
	for key, value := range links {
		var stored storedLink
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("key", key).Err(err).Msg("[settleStorage] failed to unmarshal link, skipping")
			continue
		}
		if stored.Deleted {
			continue
		}
		link := stored.PaymentLink
		s.links[link.LinkID] = &link
	}
	return nil
}

func merchantKey(merchantID uint64) []byte {
	return []byte(strconv.FormatUint(merchantID, 10))
}

func (s *Storage) SaveMerchant(profile *domain.MerchantProfile) error {
	data, err := sonic.Marshal(storedMerchant{MerchantProfile: *profile})
	if err != nil {
		return fmt.Errorf("failed to marshal merchant: %w", err)
	}
	if err := s.db.Set(MerchantsBucket, merchantKey(profile.MerchantID), data); err != nil {
		return err
	}

	s.mu.Lock()
	stored := *profile
	s.merchants[profile.MerchantID] = &stored
	if profile.OwnerWallet != "" {
		s.byOwner[profile.OwnerWallet] = profile.MerchantID
	}
	s.mu.Unlock()
	return nil
}

func (s *Storage) GetMerchant(merchantID uint64) (*domain.MerchantProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.merchants[merchantID]
	if !ok {
		return nil, false
	}
	copied := *profile
	return &copied, true
}

func (s *Storage) GetMerchantByOwner(ownerWallet string) (*domain.MerchantProfile, bool) {
	s.mu.RLock()
	merchantID, ok := s.byOwner[ownerWallet]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.GetMerchant(merchantID)
}

func (s *Storage) ListMerchants() []*domain.MerchantProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.MerchantProfile, 0, len(s.merchants))
	for _, profile := range s.merchants {
		copied := *profile
		out = append(out, &copied)
	}
	return out
}

func (s *Storage) SaveLink(link *domain.PaymentLink) error {
	data, err := sonic.Marshal(storedLink{PaymentLink: *link})
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}
	if err := s.db.Set(LinksBucket, []byte(link.LinkID), data); err != nil {
		return err
	}

	s.mu.Lock()
	stored := *link
	s.links[link.LinkID] = &stored
	s.mu.Unlock()
	return nil
}

// SaveLinkBatch writes several links in one transaction.
func (s *Storage) SaveLinkBatch(links []*domain.PaymentLink) error {
	if len(links) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, link := range links {
		data, err := sonic.Marshal(storedLink{PaymentLink: *link})
		if err != nil {
			return fmt.Errorf("failed to marshal link %s: %w", link.LinkID, err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(LinksBucket),
			Key:    []byte(link.LinkID),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add link %s to batch: %w", link.LinkID, err)
		}
	}
	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(links)).Msg("[settleStorage] FAILED to execute link batch")
		return err
	}

	s.mu.Lock()
	for _, link := range links {
		stored := *link
		s.links[link.LinkID] = &stored
	}
	s.mu.Unlock()
	return nil
}

func (s *Storage) GetLink(linkID string) (*domain.PaymentLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[linkID]
	if !ok {
		return nil, false
	}
	copied := *link
	return &copied, true
}

func (s *Storage) ListLinksByMerchant(merchantID uint64) []*domain.PaymentLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.PaymentLink, 0)
	for _, link := range s.links {
		if link.MerchantID == merchantID {
			copied := *link
			out = append(out, &copied)
		}
	}
	return out
}

func (s *Storage) DeleteLink(linkID string) error {
	s.mu.Lock()
	link, ok := s.links[linkID]
	if ok {
		delete(s.links, linkID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	data, err := sonic.Marshal(storedLink{PaymentLink: *link, Deleted: true})
	if err != nil {
		return fmt.Errorf("failed to marshal link tombstone: %w", err)
	}
	return s.db.Set(LinksBucket, []byte(linkID), data)
}
