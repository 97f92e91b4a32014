// Package metadata models the units of org metadata that pull operates on.
//
// A Component is identified by its metadata type and full name. Components
// are grouped into a ComponentSet for retrieval, and the Registry knows how
// each supported type is laid out on disk so that project files can be mapped
// back to the component they belong to.
//
// Key concepts:
//   - Component / ComponentSet: logical identity and retrievable collections
//   - Registry: type -> directory/suffix layout rules
//   - Resolver: walks package directories and indexes files by component
//   - FileResponse: per-file outcome of a retrieve or a local delete
package metadata
