// Package catalog provides the read-only index of plugin types the host can
// discover.
//
// # Overview
//
// Go has no runtime enumeration of the types in a package, so every loaded
// unit of code (a Component) declares its candidate types explicitly, usually
// from a package-level function:
//
//	func Component() *catalog.Component {
//	    return catalog.NewComponent("Acme.Billing").
//	        Add(NewInvoiceEndpoints).
//	        Add(NewAuditMiddleware, catalog.WithOrder(20)).
//	        AddType(&BillingConfig{}, catalog.WithConfigSection("billing"))
//	}
//
// Exactly one component is the host's own entry component:
//
//	host := catalog.NewComponent("acme-api", catalog.AsHost())
//
// # Building
//
// The Catalog is built once, from the host plus every explicitly registered
// component. Discovery order is component registration order, then type
// registration order within a component, and never changes afterwards.
//
//	cat, err := catalog.New(framework, billing, host)
//
// # Discovery
//
//	cat.FindTypes()                                     // every candidate type
//	cat.FindTypes(catalog.Implements[Endpoints]())      // filtered
//	cat.FindComponents(catalog.ContainsType(catalog.HasConfigSection()))
//
// An empty result is never an error.
package catalog
