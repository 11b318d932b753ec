// Package employees is a typed client for the /api/employees resource.
//
// Every call goes through the authenticated [hrclient.Client] pipeline, so
// an expired credential is refreshed and the call replayed transparently.
// Listing is server-side only: filters are passed as query parameters and
// the returned page is never filtered again locally.
package employees
