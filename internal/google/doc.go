// Package google provides OAuth2 credentials for the Google Calendar API.
//
// Tokens are stored per account as JSON files. Credentials wraps a stored
// token in a refreshing oauth2.TokenSource and writes refreshed tokens back,
// so a long chat session keeps working after the access token expires.
package google
