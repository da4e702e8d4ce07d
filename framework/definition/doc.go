// Package definition loads bean definitions from YAML documents.
//
// Documents name classes rather than Go types. Each class is declared in
// code with the container package and registered in a Classes table; the
// loader validates a document, maps every bean onto its class and registers
// the resulting definitions and aliases with a container:
//
//	classes := definition.NewClasses(repoClass, serviceClass)
//	loader := definition.NewLoader(classes, resource.NewLoader(resource.WithFS(files)), logger)
//	n, err := loader.Load(ctx, c, "embed:beans.yaml", "file:/etc/app/beans.yaml")
//
// Property literals are converted to the setter's declared type by the
// container. Constructor arguments are passed as decoded unless the value
// names a type (string, int, int64, uint, float64, bool or duration).
package definition
