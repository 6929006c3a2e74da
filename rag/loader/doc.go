// Package loader turns uploaded files into rag.Document values for the local index.
//
// Only plain text formats are supported: every registered extension is read as
// UTF-8 text and becomes a single Document whose metadata "source" is the file
// name. Use LoaderRegistry to route by extension:
//
//	registry := loader.NewLoaderRegistry()
//	docs, err := registry.LoadUpload(ctx, loader.Upload{Name: "notes.txt", Data: data})
package loader
