package types

// Controller is one door-access controller known to the gateway.
type Controller struct {
	ID       uint32 `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Model    string `json:"model,omitempty" yaml:"model"`
	Address  string `json:"address,omitempty" yaml:"address"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone"`
}

// DeviceStatus is the gateway's view of a controller.
type DeviceStatus struct {
	DeviceID   uint32 `json:"device-id"`
	IPAddress  string `json:"ip-address,omitempty"`
	SubnetMask string `json:"subnet-mask,omitempty"`
	Gateway    string `json:"gateway-address,omitempty"`
	MACAddress string `json:"mac-address,omitempty"`
	Version    string `json:"version,omitempty"`
	Date       string `json:"date,omitempty"`
}
