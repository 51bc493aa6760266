// Package fileutil provides the bounded filesystem traversal used by every search.
//
// There are two entry points:
//
//   - Walker.Walk: the traversal engine. It walks one root depth-first to a
//     depth budget, evaluates a match predicate against every visited entry
//     and stops the moment the result budget is filled.
//   - ScanDirectory: an unbudgeted, sorted scan used for the simple listing
//     helpers (list files, recursive glob search).
//
// # Depth counting
//
// A root's direct children are at depth 0. A depth budget of 0 lists the root
// only; a budget of 2 descends two directory levels below it. models.Unbounded
// disables the limit.
//
// # Error tolerance
//
// A directory that cannot be listed (permission denied, deleted mid-walk) is
// recorded as a models.SkipRecord and the walk continues with its siblings.
// Walk never returns an error.
//
// # Links
//
// Symbolic links and reparse points are not followed and are never reported
// as matches. Listings come from afero.ReadDir, which reports lstat metadata
// on the host filesystem.
//
// # Cancellation
//
// The context is checked before every directory listing, together with the
// optional rate limiter, so a long walk over a volume root stops between
// listings rather than after the whole subtree.
//
// Usage:
//
//	w := fileutil.NewWalker(afero.NewOsFs())
//	res := w.Walk(ctx, "/home/ada/Documents", query, 6, 50, fileutil.WalkOptions{})
//	if res.Truncated {
//	    // more matches may exist
//	}
package fileutil
