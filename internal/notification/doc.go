// Package notification implements notification classes: the recipient list
// each class owns, the rules that decide whether a state transition is
// reportable to a recipient right now, and the engine that fans one event
// out to every eligible recipient.
//
// # Recipient lists
//
// A recipient list travels over the wire as a flat []bacnet.Value in which
// every recipient occupies seven consecutive slots:
//
//	validDays, fromTime, toTime, recipient, processIdentifier,
//	issueConfirmedNotifications, transitions
//
// DecodeRecipients and EncodeRecipients convert between that form and
// []RecipientRecord. Class.SetRecipientList applies a flat list and silently
// keeps the current list when the input is malformed.
//
// # Dispatch
//
// Engine.Dispatch builds one EventNotification template per transition and
// gives every scheduled delivery task its own copy with the recipient's
// process identifier filled in. The template itself is never written after
// it is built, so concurrent deliveries cannot observe each other's
// identifiers. Dispatch returns once tasks are scheduled; delivery results
// reach an optional DeliveryObserver.
//
// Skipped recipients are not errors. Every recipient gets an Outcome:
//
//	ResultScheduled          eligible and reachable, send task started
//	ResultSkippedIneligible  outside its time window, day or transition mask
//	ResultSkippedUnreachable no directory entry / no direct transport
//	ResultSkippedClosed      engine already shut down
//
// # Persistence
//
// Classes are stored in SQLite (SQLiteRepository) and cached in a Registry.
// A Listener turns state-transition messages from the MQTT bus into
// Dispatch calls. LoadProvisioning reads class definitions from YAML so a
// site can keep its classes under version control.
//
// Known limitation: recipient time windows that cross midnight
// (from > to) never match; see InWindow.
package notification
