// Package http provides HTTP handlers and middleware for the reservation API.
//
// Sessions travel as a bearer token in the Authorization header or in the
// `session_token` cookie. The router exposes:
//   - POST /signup, POST /sessions: create a worker account or sign in. Both
//     respond with {"token","expires_at","profile"} and set the cookie.
//   - POST /sessions/refresh, DELETE /sessions/current: rotate or revoke the
//     current session.
//   - GET /me, PATCH /me, POST /me/password, POST /me/token: the acting
//     user's profile, password and privileged function access token.
//   - GET/POST /projects, DELETE /projects/{id}, GET /projects/{id}/report.
//   - GET/POST /projects/{id}/slots, POST /projects/{id}/slots/batch,
//     DELETE /slots/{id}: slot listing (from, to, preset, availability) and
//     administration.
//   - POST /slots/{id}/reservations, DELETE /reservations/{id}: reserve and
//     cancel a seat.
//   - GET /users, GET /users/export, PATCH /users/{id}, DELETE /users/{id}.
//   - GET /console: the role specific dashboard for the session.
//
// Errors are rendered as {"error_code","message","errors"}. Request and
// response DTOs live alongside their handlers.
package http
