package usecase

import "errors"

// errIndexDegraded wraps a non-fatal index write/delete failure: the
// shard write already succeeded and is the source of truth, and the
// Reconciler repairs the index later. Callers receive it as an ordinary
// error; the HTTP handlers do not tell it apart from other failures.
var errIndexDegraded = errors.New("schedule index degraded")
