package cineauth

import "context"

type clientIPContextKey struct{}
type platformContextKey struct{}
type deviceNameContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP rate limiting, reset-request source binding, and audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithPlatform attaches the client platform tag to ctx. Sessions created
// without a platform fall back to the configured default.
func WithPlatform(ctx context.Context, platform string) context.Context {
	return context.WithValue(ctx, platformContextKey{}, platform)
}

// WithDeviceName attaches an optional human-readable device name to ctx,
// recorded on the session for the user's device list.
func WithDeviceName(ctx context.Context, deviceName string) context.Context {
	return context.WithValue(ctx, deviceNameContextKey{}, deviceName)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func platformFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	platform, _ := ctx.Value(platformContextKey{}).(string)
	return platform
}

func deviceNameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	deviceName, _ := ctx.Value(deviceNameContextKey{}).(string)
	return deviceName
}
