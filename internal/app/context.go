package app

import "context"

type userTokenKey struct{}

func withUserToken(ctx context.Context, accessToken string) context.Context {
	return context.WithValue(ctx, userTokenKey{}, accessToken)
}

// UserToken returns the authenticated user's access token inside an action
// handler registered with RequireUserAuth. The token travels in the request
// context rather than on the event so it never ends up in logs of event
// payloads.
func UserToken(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(userTokenKey{}).(string)
	return tok, ok && tok != ""
}
