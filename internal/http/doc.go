// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - GET /healthz: liveness probe, no authentication required.
//   - GET /bookings, POST /bookings, GET /bookings/{id}, PUT /bookings/{id},
//     DELETE /bookings/{id}: booking management endpoints exchanging the
//     `bookingDTO` payload defined in booking_handler.go. Creation responses
//     carry a recurrence summary when the booking repeats.
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}: room catalog endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go. Listing is available to any
//     authenticated principal while mutations require the admin role.
//   - GET /users, POST /users, GET /users/{id}, PUT /users/{id},
//     DELETE /users/{id}: administrator controlled user management endpoints
//     exchanging the `userDTO` payload defined in user_handler.go.
//
// Every endpoint except /healthz expects the caller identity in the
// `X-User-ID` and `X-User-Role` headers; an upstream gateway is trusted to
// have authenticated the request. Request/response DTOs live alongside their
// respective handlers so tests and documentation share the same ground truth.
package http
