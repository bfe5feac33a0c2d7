package catalog

import "github.com/shopspring/decimal"

// Default returns the built-in plan table.
func Default() *Catalog {
	return MustNew(
		Plan{
			ID:          "prod_SW7wppHnGqsM5G",
			PriceID:     "price_1Rb5glE9sWWwOMdjsdPc7Tng",
			Name:        "BASIC",
			Description: "Basic subscription plan for getting started",
			Mode:        ModeSubscription,
			Price:       decimal.RequireFromString("29.00"),
			Tagline:     "Entry-level neural interface for street runners",
			Features: []string{
				"Basic Neural Link",
				"Standard Encryption",
				"5GB Data Storage",
				"Community Support",
				"Basic Firewall",
			},
		},
		Plan{
			ID:          "prod_SW7xfcqlZiTH99",
			PriceID:     "price_1Rb5hRE9sWWwOMdjGvCyFdjj",
			Name:        "ELITE",
			Description: "Standard subscription plan with essential features",
			Mode:        ModeSubscription,
			Price:       decimal.RequireFromString("89.00"),
			Tagline:     "Advanced cybernetic suite for professional netrunners",
			Features: []string{
				"Advanced Neural Interface",
				"Military-Grade Encryption",
				"50GB Secure Storage",
				"Priority Support Channel",
				"Advanced ICE Protection",
				"Stealth Mode Access",
			},
			Popular: true,
		},
		Plan{
			ID:          "prod_SW7xWwaP5GvdtT",
			PriceID:     "price_1Rb5hlE9sWWwOMdjXNh6uNzX",
			Name:        "ENTERPRISE",
			Description: "Premium subscription plan with advanced features",
			Mode:        ModeSubscription,
			Price:       decimal.RequireFromString("199.00"),
			Tagline:     "Corporate-grade neural enhancement for data fortress infiltration",
			Features: []string{
				"Quantum Neural Matrix",
				"Quantum Encryption",
				"Unlimited Data Vault",
				"24/7 Elite Support",
				"Corporate ICE Bypass",
				"Reality Augmentation",
				"Time Dilation Access",
			},
		},
	)
}
