package core

import "strings"

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Investment AccountType = "investment"
)

type (
	AccountType string

	Account struct {
		ID       ID          `json:"id"`
		Name     string      `json:"name"`
		Type     AccountType `json:"type"`
		Balance  Money       `json:"balance"`
		Currency string      `json:"currency"`
	}

	// Category groups transactions. The budget association is derived from budgets.
	Category struct {
		ID    ID     `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color Color  `json:"color"`
	}
)

func NewAccount(ids IDGenerator, name string, typ AccountType, balance Money, currency string) Account {
	return Account{
		ID:       ids(),
		Name:     name,
		Type:     typ,
		Balance:  balance,
		Currency: strings.ToUpper(strings.TrimSpace(currency)),
	}
}

func (t AccountType) Validate() error {
	switch t {
	case Checking, Savings, Credit, Investment:
		return nil
	default:
		return ErrInvalidType
	}
}

func (a Account) RecordID() ID   { return a.ID }
func (a Account) Clone() Account { return a }

func (a Account) Validate() error {
	if err := validateID(a.ID); err != nil {
		return err
	}
	if err := validateName(a.Name); err != nil {
		return err
	}
	if err := a.Type.Validate(); err != nil {
		return err
	}
	if !ValidCurrency(a.Currency) {
		return ErrInvalidCurrency
	}
	return nil
}

func NewCategory(ids IDGenerator, name, icon string, color Color) Category {
	return Category{ID: ids(), Name: name, Icon: icon, Color: color}
}

func (c Category) RecordID() ID    { return c.ID }
func (c Category) Clone() Category { return c }

func (c Category) Validate() error {
	if err := validateID(c.ID); err != nil {
		return err
	}
	return validateName(c.Name)
}
