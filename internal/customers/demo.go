package customers

import "github.com/punchout/dashboard/internal/app"

// DemoProfiles are the sample buyers used when no customers file is configured
func DemoProfiles() []app.CustomerProfile {
	return []app.CustomerProfile{
		{ID: "CUST001", Name: "Acme Corporation", Domain: "acme.com", BuyerID: "buyer123"},
		{ID: "CUST002", Name: "TechCorp Industries", Domain: "techcorp.com", BuyerID: "buyer456"},
		{ID: "CUST003", Name: "Global Supplies Inc", Domain: "globalsupplies.com", BuyerID: "buyer789"},
	}
}

// Demo returns a directory of DemoProfiles
func Demo() *Directory {
	d, err := New(DemoProfiles())
	if err != nil {
		panic(err)
	}
	return d
}
