package dto

// SettingRequest replaces the value of one setting.
type SettingRequest struct {
	Value interface{} `json:"value"`
}

// SettingResponse carries one setting.
type SettingResponse struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	Saved *bool       `json:"saved,omitempty"`
}
