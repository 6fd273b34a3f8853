package model

// CompanyState aggregates every mutable attribute of a company. Values are
// treated as immutable: all helpers return a new instance.
type CompanyState struct {
	CompanyID string           `json:"company_id"`
	Cash      Money            `json:"cash"`
	Inventory InventoryLedger  `json:"inventory"`
	Factories FactoryPortfolio `json:"factories"`
	Loans     []LoanAccount    `json:"loans"`
}

// NewCompanyState returns a company with the given cash, an empty inventory,
// and no factories or loans.
func NewCompanyState(companyID string, cash Money) CompanyState {
	return CompanyState{
		CompanyID: companyID,
		Cash:      cash,
		Inventory: NewInventoryLedger(),
	}
}

// CreditCash returns a state with amount added to cash.
func (s CompanyState) CreditCash(amount Money) (CompanyState, error) {
	cash, err := s.Cash.Add(amount)
	if err != nil {
		return CompanyState{}, err
	}
	s.Cash = cash
	return s, nil
}

// DebitCash returns a state with amount subtracted from cash. The balance is
// allowed to go negative; bankruptcy is resolved by the phase handlers.
func (s CompanyState) DebitCash(amount Money) (CompanyState, error) {
	cash, err := s.Cash.Subtract(amount)
	if err != nil {
		return CompanyState{}, err
	}
	s.Cash = cash
	return s, nil
}

// AdjustInventory returns a state with the inventory deltas applied
// atomically.
func (s CompanyState) AdjustInventory(changes map[ResourceType]int) (CompanyState, error) {
	inventory, err := s.Inventory.ApplyMany(changes)
	if err != nil {
		return CompanyState{}, err
	}
	s.Inventory = inventory
	return s, nil
}

// WithInventory returns a state with the inventory replaced.
func (s CompanyState) WithInventory(ledger InventoryLedger) CompanyState {
	s.Inventory = ledger
	return s
}

// WithFactories returns a state with the factory portfolio replaced.
func (s CompanyState) WithFactories(portfolio FactoryPortfolio) CompanyState {
	s.Factories = portfolio
	return s
}

// WithLoans returns a state with the loan list replaced.
func (s CompanyState) WithLoans(loans []LoanAccount) CompanyState {
	s.Loans = loans
	return s
}

// RegisterLoan returns a state with loan appended.
func (s CompanyState) RegisterLoan(loan LoanAccount) CompanyState {
	s.Loans = append(append([]LoanAccount(nil), s.Loans...), loan)
	return s
}
