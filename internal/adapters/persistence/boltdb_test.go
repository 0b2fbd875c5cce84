package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qantara-pay/settle-engine/internal/domain"
)

func TestStorageSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewStorage(dbPath)
	require.NoError(t, err)

	require.NoError(t, s.SaveMerchant(&domain.MerchantProfile{
		MerchantID:  7,
		OwnerWallet: "owner-wallet",
	}))
	require.NoError(t, s.SaveLink(&domain.PaymentLink{LinkID: "link-1", MerchantID: 7, Price: 5}))
	require.NoError(t, s.SaveLink(&domain.PaymentLink{LinkID: "link-2", MerchantID: 7, Price: 10}))
	require.NoError(t, s.DeleteLink("link-2"))
	require.NoError(t, s.Close())

	reopened, err := NewStorage(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	profile, ok := reopened.GetMerchant(7)
	require.True(t, ok)
	assert.Equal(t, "owner-wallet", profile.OwnerWallet)

	byOwner, ok := reopened.GetMerchantByOwner("owner-wallet")
	require.True(t, ok)
	assert.Equal(t, uint64(7), byOwner.MerchantID)

	_, ok = reopened.GetLink("link-1")
	assert.True(t, ok)

	// Tombstoned link stays gone across reopen.
	_, ok = reopened.GetLink("link-2")
	assert.False(t, ok)
}

func TestStorageCopyOutSemantics(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveMerchant(&domain.MerchantProfile{MerchantID: 7, DefaultPayoutBps: 7000}))

	first, ok := s.GetMerchant(7)
	require.True(t, ok)
	first.DefaultPayoutBps = 1

	second, ok := s.GetMerchant(7)
	require.True(t, ok)
	assert.Equal(t, uint16(7000), second.DefaultPayoutBps)
}

func TestSaveLinkBatch(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	links := []*domain.PaymentLink{
		{LinkID: "a", MerchantID: 1},
		{LinkID: "b", MerchantID: 1},
		{LinkID: "c", MerchantID: 2},
	}
	require.NoError(t, s.SaveLinkBatch(links))

	assert.Len(t, s.ListLinksByMerchant(1), 2)
	assert.Len(t, s.ListLinksByMerchant(2), 1)
}
