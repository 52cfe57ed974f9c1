// Package metadata synthesizes Salesforce metadata descriptors (custom
// objects, fields, flows, validation rules and permission sets) from catalog
// modules, assembles them into a deployable package, and renders that package
// as XML documents.
//
// All functions are pure. Nothing here talks to a Salesforce org; the
// imperative shell (internal/shell/salesforce) consumes the component list.
//
//	gen := metadata.NewGenerator("58.0")
//	pkg := gen.Package(selection.Modules, selection.Industry)
//	pkg = pkg.Filter(metadata.Selection{CustomObjects: true, Flows: true})
//	docs, err := metadata.RenderXML(pkg)
package metadata
