package memo

// DebugMode enables development-time validation in the composition engine
// built on this package, most notably hook order checking on every render.
//
// Dependency list length checks are not gated by DebugMode: a list whose
// length changes always fails, since the positional comparison that follows
// would be meaningless.
//
// This should be set at startup and not changed while a scheduler is running.
var DebugMode bool
