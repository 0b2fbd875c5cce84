package merchant

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/qantara-pay/settle-engine/internal/adapters/persistence"
	"github.com/qantara-pay/settle-engine/internal/common"
	"github.com/qantara-pay/settle-engine/internal/config"
	"github.com/qantara-pay/settle-engine/internal/domain"
	"github.com/qantara-pay/settle-engine/internal/metrics"
	"github.com/qantara-pay/settle-engine/internal/services/builder"
)

const MERCHANT_SERVICE = "merchant-svc"

// Service owns the off-chain merchant profiles and payment links. The
// security-critical merchant state stays on-chain; this service only keeps
// business configuration and checkout links.
type Service struct {
	container.BaseDIInstance

	storage   *persistence.Storage
	programID solana.PublicKey
}

// NewService wires a merchant service from explicit collaborators.
// Production uses Configure; tests inject a storage over a scratch path.
func NewService(storage *persistence.Storage, programID solana.PublicKey) *Service {
	return &Service{storage: storage, programID: programID}
}

func (svc *Service) ID() string {
	return MERCHANT_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	storeConfig := c.GetConfig(config.STORE_CONFIG_KEY).(*config.StoreConfig)
	programConfig := c.GetConfig(config.PROGRAM_CONFIG_KEY).(*config.ProgramConfig)

	programID, err := solana.PublicKeyFromBase58(programConfig.ProgramID)
	if err != nil {
		return fmt.Errorf("invalid settlement program id %q: %w", programConfig.ProgramID, err)
	}
	svc.programID = programID

	storage, err := persistence.NewStorage(storeConfig.DBPath)
	if err != nil {
		return err
	}
	svc.storage = storage

	metrics.MerchantCount.Set(float64(len(storage.ListMerchants())))
	return nil
}

func (svc *Service) Start() error { return nil }

func (svc *Service) Stop() error {
	if svc.storage != nil {
		return svc.storage.Close()
	}
	return nil
}

// Register creates a merchant profile. The registry PDA is derived and
// recorded so later reads never re-derive from user input.
func (svc *Service) Register(profile *domain.MerchantProfile) (*domain.MerchantProfile, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	if _, exists := svc.storage.GetMerchant(profile.MerchantID); exists {
		return nil, common.HTTPErrorResourceConflict(fmt.Sprintf("merchant %d already registered", profile.MerchantID))
	}

	registryPDA, err := builder.GetCachedMerchantRegistry(profile.MerchantID, svc.programID)
	if err != nil {
		return nil, err
	}
	profile.RegistryPDA = registryPDA.String()

	if profile.SlippageBps == 0 {
		profile.SlippageBps = 100
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := svc.storage.SaveMerchant(profile); err != nil {
		return nil, err
	}

	metrics.MerchantCount.Inc()
	log.Info().
		Uint64("merchantID", profile.MerchantID).
		Str("registryPDA", profile.RegistryPDA).
		Msg("[MerchantService] registered merchant")
	return profile, nil
}

func (svc *Service) Get(merchantID uint64) (*domain.MerchantProfile, error) {
	profile, ok := svc.storage.GetMerchant(merchantID)
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return profile, nil
}

func (svc *Service) GetByOwner(ownerWallet string) (*domain.MerchantProfile, error) {
	profile, ok := svc.storage.GetMerchantByOwner(ownerWallet)
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return profile, nil
}

func (svc *Service) List() []*domain.MerchantProfile {
	return svc.storage.ListMerchants()
}

// Update applies a mutation to an existing profile and persists it. The
// mutation runs on a copy; a returned error leaves the stored profile
// untouched.
func (svc *Service) Update(merchantID uint64, apply func(*domain.MerchantProfile) error) (*domain.MerchantProfile, error) {
	profile, ok := svc.storage.GetMerchant(merchantID)
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	if err := apply(profile); err != nil {
		return nil, err
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	profile.UpdatedAt = time.Now().UTC()

	if err := svc.storage.SaveMerchant(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateLink mints a payment link with a fresh id.
func (svc *Service) CreateLink(link *domain.PaymentLink) (*domain.PaymentLink, error) {
	if _, err := svc.Get(link.MerchantID); err != nil {
		return nil, err
	}
	if int(link.PayoutBps)+int(link.BuybackBps) > common.BpsDenominator {
		return nil, domain.ErrInvalidBasisPoints
	}
	if _, ok := domain.PayTokenFromString(link.PayToken); !ok {
		return nil, common.HTTPErrorBadRequest(fmt.Sprintf("unsupported pay token %q", link.PayToken))
	}

	link.LinkID = uuid.NewString()
	link.CreatedAt = time.Now().UTC()
	if err := svc.storage.SaveLink(link); err != nil {
		return nil, err
	}
	metrics.PaymentLinkCount.Inc()
	return link, nil
}

func (svc *Service) GetLink(linkID string) (*domain.PaymentLink, error) {
	link, ok := svc.storage.GetLink(linkID)
	if !ok {
		return nil, common.HTTPErrorNotFound(fmt.Sprintf("payment link %s not found", linkID))
	}
	return link, nil
}

func (svc *Service) ListLinks(merchantID uint64) []*domain.PaymentLink {
	return svc.storage.ListLinksByMerchant(merchantID)
}

func (svc *Service) DeleteLink(linkID string) error {
	if err := svc.storage.DeleteLink(linkID); err != nil {
		return err
	}
	metrics.PaymentLinkCount.Dec()
	return nil
}

func validateProfile(profile *domain.MerchantProfile) error {
	for _, addr := range []string{profile.OwnerWallet, profile.PayoutWallet, profile.BuybackMint} {
		if addr == "" {
			return fmt.Errorf("%w: missing required wallet", domain.ErrInvalidAddress)
		}
		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			return fmt.Errorf("%w: %q", domain.ErrInvalidAddress, addr)
		}
	}
	if profile.VaultBuybackToken != "" {
		if _, err := solana.PublicKeyFromBase58(profile.VaultBuybackToken); err != nil {
			return fmt.Errorf("%w: %q", domain.ErrInvalidAddress, profile.VaultBuybackToken)
		}
	}
	if int(profile.DefaultPayoutBps)+int(profile.DefaultBuybackBps) > common.BpsDenominator {
		return domain.ErrInvalidBasisPoints
	}
	if profile.DefaultBurnBps > common.BpsDenominator || profile.SlippageBps > common.BpsDenominator {
		return domain.ErrInvalidBasisPoints
	}
	return nil
}
