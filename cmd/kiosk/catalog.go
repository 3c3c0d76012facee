package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DroHadTo/Solanashop/cart"
)

type catalogFile struct {
	Products []struct {
		Name  string `yaml:"name"`
		Price string `yaml:"price"`
	} `yaml:"products"`
}

var defaultCatalog = []struct{ name, price string }{
	{"Sticker", "0.20"},
	{"Coffee", "2.50"},
	{"T-Shirt", "15.00"},
}

// loadCatalog reads the products a kiosk sells. Without a path the built-in
// catalog is used.
func loadCatalog(path string) ([]cart.LineItem, error) {
	if path == "" {
		items := make([]cart.LineItem, 0, len(defaultCatalog))
		for _, p := range defaultCatalog {
			item, err := cart.ParseLineItem(p.name, p.price)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	items := make([]cart.LineItem, 0, len(file.Products))
	for i, p := range file.Products {
		item, err := cart.ParseLineItem(p.Name, p.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog product %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog %s has no products", path)
	}
	return items, nil
}
