package model

// SubscriptionKeys holds the client key material the push server encrypts against
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription represents a device push subscription: a delivery endpoint
// plus the keys the server needs to address this device
type PushSubscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// KeyResponse represents the server's public signing key envelope
type KeyResponse struct {
	PublicKey string `json:"publicKey"`
}

// PushStatusResponse reports whether the server has push delivery configured
type PushStatusResponse struct {
	Configured bool `json:"configured"`
}
