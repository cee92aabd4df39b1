// Package http provides HTTP handlers and middleware for the duty roster API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a session token. Body: {"email","password"}. The token
//     is returned in the body, the `X-Session-Token` header, and a
//     `session_token` cookie.
//   - POST /logout, DELETE /sessions/current: revoke the caller's own session.
//     DELETE /sessions/{token} lets administrators revoke any session.
//   - GET /users, POST /users, GET/PUT/DELETE /users/{id}: account management
//     exchanging the `userDTO` payload defined in user_handler.go.
//   - GET /roles, POST /roles, GET/PUT/DELETE /roles/{id}, POST /roles/reorder:
//     the ordered role catalog. Creation accepts an optional 1-based sort_order
//     for insertion; reorder takes a batch of (role_id, sort_order) moves.
//   - GET /tasks, POST /tasks, GET/PUT/DELETE /tasks/{id}: the recurring duty
//     catalog exchanging the `taskDTO` payload defined in task_handler.go.
//   - GET /conflicts, POST /conflicts, GET/PUT/DELETE /conflicts/{id}: the
//     symmetric task exclusion pairs.
//   - GET /obstacles, POST /obstacles, GET/PATCH/DELETE /obstacles/{id}: leave
//     requests. PATCH carries the approval decision; approving removes the
//     assignments the leave retroactively invalidates.
//   - GET /schedules, POST /schedules, GET/PUT/DELETE /schedules/{id}: one
//     assignment per user, task, and date. POST /schedules/period books a full
//     Monday-to-Sunday week. GET /schedules/available-tasks and
//     GET /schedules/task/{id}/dependencies back the scheduling UI.
//   - GET /reports/schedules: plain-text roster for a date window.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
