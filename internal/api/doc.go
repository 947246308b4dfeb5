// Package api implements the read-only diagnostics HTTP API of the alarm
// service.
//
// Endpoints (all GET, JSON):
//
//	/api/v1/health                      component health and version
//	/api/v1/directory/{device}          resolved endpoint for a device
//	/api/v1/notification-classes        every class with its recipients
//	/api/v1/notification-classes/{id}   one class
//	/api/v1/deliveries                  delivery trail, newest first
//	                                    (?class=&outcome=&limit=&offset=)
//
// There is no write surface: recipient lists change through
// notification.Registry, never over HTTP.
package api
