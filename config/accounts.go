package config

import (
	"fmt"
	"os"

	"chat-meter/models"

	"gopkg.in/yaml.v3"
)

type accountsFile struct {
	Accounts []models.Account `yaml:"accounts"`
}

// LoadAccounts reads the static credential list. It is read once at startup.
func LoadAccounts(path string) ([]models.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	return ParseAccounts(raw)
}

// ParseAccounts decodes and validates an accounts document.
func ParseAccounts(raw []byte) ([]models.Account, error) {
	var doc accountsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	if len(doc.Accounts) == 0 {
		return nil, fmt.Errorf("accounts file defines no accounts")
	}

	seen := make(map[string]bool, len(doc.Accounts))
	for i := range doc.Accounts {
		a := &doc.Accounts[i]
		if a.Name == "" {
			return nil, fmt.Errorf("account #%d has no name", i+1)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("account %q is defined twice", a.Name)
		}
		seen[a.Name] = true

		switch a.Role {
		case "":
			a.Role = models.RoleStandard
		case models.RoleAdmin, models.RoleStandard:
		default:
			return nil, fmt.Errorf("account %q has unknown role %q", a.Name, a.Role)
		}
		if a.DailyCap != nil && *a.DailyCap < 0 {
			return nil, fmt.Errorf("account %q has a negative daily_cap", a.Name)
		}
	}
	return doc.Accounts, nil
}
