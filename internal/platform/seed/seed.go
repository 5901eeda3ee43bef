package seed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

// Default is the demo directory loaded when no seed file is configured.
func Default() []domain.BookableEntity {
	return []domain.BookableEntity{
		{
			ID:              "hosp_1",
			Category:        "Hospital",
			Name:            "St. Marys",
			SubCategory:     "Cardiology",
			Capacity:        10,
			CurrentBookings: 4,
			DepositRequired: 50,
			PayoutAddress:   "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe",
		},
		{
			ID:              "hosp_2",
			Category:        "Hospital",
			Name:            "London Central",
			SubCategory:     "ER",
			Capacity:        5,
			CurrentBookings: 5,
			DepositRequired: 50,
			PayoutAddress:   "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
		},
		{
			ID:              "rest_1",
			Category:        "Restaurant",
			Name:            "The Golden Duck",
			SubCategory:     "Fine Dining",
			Capacity:        20,
			CurrentBookings: 18,
			DepositRequired: 10,
			PayoutAddress:   "r9cZA1mLK5R5Am25ArfXFmqgNwjZgnfk59",
		},
		{
			ID:              "rest_2",
			Category:        "Restaurant",
			Name:            "Pasta Palace",
			SubCategory:     "Italian",
			Capacity:        15,
			CurrentBookings: 5,
			DepositRequired: 15,
			PayoutAddress:   "rf1BiGeXwwQoi8Z2ueFYTEXSwuJYfV2Jpn",
		},
	}
}

type entityFile struct {
	Entities []struct {
		ID              string  `yaml:"id"`
		Category        string  `yaml:"category"`
		Name            string  `yaml:"name"`
		SubCategory     string  `yaml:"sub_category"`
		Capacity        int     `yaml:"capacity"`
		CurrentBookings int     `yaml:"current_bookings"`
		DepositRequired float64 `yaml:"deposit_required"`
		PayoutAddress   string  `yaml:"payout_address"`
	} `yaml:"entities"`
}

// Load reads a YAML seed file. An empty path yields Default.
func Load(path string) ([]domain.BookableEntity, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	return Parse(raw)
}

func Parse(raw []byte) ([]domain.BookableEntity, error) {
	var file entityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Entities))
	entities := make([]domain.BookableEntity, 0, len(file.Entities))
	for i, e := range file.Entities {
		if e.ID == "" || e.Name == "" {
			return nil, fmt.Errorf("seed entity %d: id and name are required", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("seed entity %s: duplicate id", e.ID)
		}
		if e.Capacity < 0 || e.CurrentBookings < 0 || e.CurrentBookings > e.Capacity {
			return nil, fmt.Errorf("seed entity %s: current_bookings must be within 0..capacity", e.ID)
		}
		seen[e.ID] = struct{}{}

		entities = append(entities, domain.BookableEntity{
			ID:              e.ID,
			Category:        e.Category,
			Name:            e.Name,
			SubCategory:     e.SubCategory,
			Capacity:        e.Capacity,
			CurrentBookings: e.CurrentBookings,
			DepositRequired: e.DepositRequired,
			PayoutAddress:   e.PayoutAddress,
		})
	}

	return entities, nil
}
