// Package walk is the public API of ptree: a directory-tree inspector with
// loop and containment checks, a composable filter pipeline and several
// output formats.
//
// Printing a tree:
//
//	opts := &walk.Options{
//		Root:      ".",
//		Sort:      walk.SortName,
//		DirsFirst: true,
//		Excludes:  []string{"*.tmp"},
//	}
//	stats, err := walk.Print(os.Stdout, walk.FormatPlain, opts)
//
// Consuming the traversal stream directly:
//
//	w, err := walk.New(opts)
//	if err != nil {
//		return err
//	}
//	stats, err := w.Walk(myVisitor)
//
// A Visitor receives one Visit per emitted entry in depth-first order. Every
// Visit whose Step has Descend set is followed by exactly one Leave once the
// subtree below it has been drained.
package walk
