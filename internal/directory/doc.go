// Package directory tracks where recipients of event notifications can be
// reached.
//
// Two stores live here:
//
//   - Directory maps a device instance to the transport and address it was
//     last announced on. Discovery announcements overwrite earlier entries
//     for the same device; there is no merge and no expiry.
//   - DirectEndpoints holds the single transport used for recipients that
//     are configured with an explicit network address instead of a device
//     instance.
//
// Both are owned by the caller and passed by reference to the components
// that feed them (AnnouncementHandler) and read them (the dispatch engine).
//
// Usage:
//
//	dir := directory.New()
//	direct := directory.NewDirectEndpoints()
//	direct.SetIfKind(mqttTransport, "mqtt")
//
//	handler := directory.NewAnnouncementHandler(dir, mqttTransport)
//	client.Attach(mqtt.RoleAnnouncements, handler.Handle)
//
//	ep, ok := dir.Lookup(1234)
//
// Thread Safety: all exported types are safe for concurrent use.
package directory
