// Package app is the example host: a small greeting service assembled
// entirely from plugins.
package app

import (
	"github.com/km-arc/pibox/framework/catalog"
)

// Name is the host component name.
const Name = "greeter-service"

// Component returns the host's entry component.
func Component() *catalog.Component {
	return catalog.NewComponent(Name, catalog.AsHost()).
		Add(NewGreetingConfig, catalog.WithConfigSection(GreetingSection)).
		Add(NewGreetingServices).
		Add(NewGreetingEndpoints).
		Add(NewGreetingCheck).
		AddType(&PoweredBy{}, catalog.WithOrder(100))
}
