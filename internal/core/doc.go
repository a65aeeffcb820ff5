// Package core provides the business logic of the BOM quote wizard.
//
// It is independent of HTTP: the web handlers and the bomcli command both
// drive it.
//
// # Wizard
//
// A [Session] moves through three steps:
//
//	Input   --parse ok-->    Mapping
//	Mapping --pricing ok-->  Result
//	Mapping --reset-->       Input
//	Result  --reset-->       Input
//
// Input accepts pasted text ([ParseText]) or a spreadsheet file
// ([ParseFile]). Both produce a [Grid] that is never reshaped afterwards.
// Mapping assigns a [Role] to columns; processing is only allowed once a
// column holds [RolePartNumber]. The mapped grid is sent to a [Processor]
// (the pricing gateway) and the returned [Result] is paginated with
// [Paginate] and exported with [ExportResults].
//
// # Concurrency
//
// Sessions live in a [Store] and guard their own state. A session allows one
// pricing call at a time (the loading flag); a [CallLimiter] caps calls
// across sessions. Calls are detached from the HTTP request that started
// them and are never cancelled by a reset.
//
// # Error Handling
//
// Sentinel errors in errors.go are mapped to user messages with codes by
// [MapError].
package core
