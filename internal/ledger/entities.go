package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletType classifies a wallet's purpose within a user's plan.
type WalletType string

const (
	// WalletTypePersonal is the user's primary spendable wallet and the
	// implicit destination for unallocated deposit remainders.
	WalletTypePersonal WalletType = "PERSONAL"
	WalletTypeSavings  WalletType = "SAVINGS"
	WalletTypeBill     WalletType = "BILL"
	// WalletTypeSource holds incoming deposits before splitting. System
	// anchor wallets also use this type.
	WalletTypeSource WalletType = "SOURCE"
	WalletTypeCustom WalletType = "CUSTOM"
)

// Well-known system wallet identifiers. These rows are provisioned at startup
// and anchor every external or internal fund flow in the ledger.
const (
	PaystackIngressWalletID  = "sys_paystack_ingress"
	FundsInTransitWalletID   = "sys_funds_in_transit"
	WalletCreationSourceID   = "sys_wallet_creation"
	DefaultCurrency          = "NGN"
	UnallocatedFundsName     = "Unallocated Funds"
	PrimaryWalletName        = "Primary"
)

// Wallet is a stored-value account. Balance is a cached value in minor
// currency units (kobo); the ledger entries are the source of truth and the
// cache is only ever mutated alongside a matching balanced entry.
type Wallet struct {
	ID        string
	UserID    string // empty for system wallets
	Name      string
	Type      WalletType
	Currency  string
	Balance   int64
	CreatedAt time.Time
}

// System reports whether the wallet is a userless ledger anchor.
func (w Wallet) System() bool { return w.UserID == "" }

// EntrySide is the accounting position of a ledger entry.
type EntrySide string

const (
	SideDebit  EntrySide = "DEBIT"
	SideCredit EntrySide = "CREDIT"
)

// LedgerTransaction is one atomic economic event. Immutable once written.
type LedgerTransaction struct {
	ID          string
	Description string
	CreatedAt   time.Time
}

// LedgerEntry is a single signed amount against one wallet, belonging to
// exactly one ledger transaction. Amount is always non-negative; the side
// carries the sign.
type LedgerEntry struct {
	ID                  string
	LedgerTransactionID string
	WalletID            string
	Side                EntrySide
	Amount              int64
}

// Movement describes one leg of a fund movement handed to the engine.
type Movement struct {
	WalletID string
	Amount   int64
}

// RuleType enumerates split rule kinds. Only percentage rules exist today.
type RuleType string

const (
	RuleTypePercentage RuleType = "PERCENTAGE"
)

// SplitRule routes a percentage of every incoming deposit to a destination
// wallet. Value keeps two decimal places of precision; the active percentage
// sum per user may never exceed 100.
type SplitRule struct {
	ID                  string
	UserID              string
	Name                string
	Type                RuleType
	Value               decimal.Decimal
	DestinationWalletID string
	Priority            int
	Active              bool
	CreatedAt           time.Time
}

// TransactionType is the direction of an external-facing transaction.
type TransactionType string

const (
	TransactionCredit   TransactionType = "CREDIT"
	TransactionDebit    TransactionType = "DEBIT"
	TransactionTransfer TransactionType = "TRANSFER"
)

// Transaction is the external-facing deposit/withdrawal record, distinct from
// a LedgerTransaction. Reference is the provider's idempotency key.
type Transaction struct {
	ID           string
	UserID       string
	Reference    string
	Amount       int64
	Currency     string
	Type         TransactionType
	Status       string
	SplitApplied bool
	Description  string
	InitiatedAt  time.Time
}

// PayoutStatus is the payout state machine. PENDING and PROCESSING are set by
// the orchestrator; SETTLED and FAILED arrive via the provider callback.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "PENDING"
	PayoutProcessing PayoutStatus = "PROCESSING"
	PayoutSettled    PayoutStatus = "SETTLED"
	PayoutFailed     PayoutStatus = "FAILED"
)

// Payout is an outbound transfer from a wallet to a linked bank account.
type Payout struct {
	ID                  string
	UserID              string
	SourceWalletID      string
	DestinationBankID   string
	Amount              int64
	Currency            string
	Reference           string
	Status              PayoutStatus
	LedgerTransactionID string
	ProviderReference   string
	CreatedAt           time.Time
}

// BankAccount is a verified external destination for payouts.
type BankAccount struct {
	ID            string
	UserID        string
	BankName      string
	BankCode      string
	AccountNumber string
	AccountName   string
	AccountType   string
	Verified      bool
	ProviderRef   string
	Primary       bool
	CreatedAt     time.Time
}

// User is the identity glue consumed by the core: an authenticated owner id
// plus the email deposits are matched on.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}
