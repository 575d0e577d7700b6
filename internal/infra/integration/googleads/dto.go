package googleads

// UploadInput é o que o worker manda pro client. EmailHash vai no
// modo enhanced conversions; ClickID cobre o match clássico.
type UploadInput struct {
	ConversionID string
	EmailHash    string
	ClickID      string
	Stage        string
}

type conversionAdjustment struct {
	ConversionAction string          `json:"conversionAction"`
	OrderID          string          `json:"orderId"`
	GCLID            string          `json:"gclid,omitempty"`
	UserIdentifiers  []identifier    `json:"userIdentifiers,omitempty"`
	ConversionValue  conversionValue `json:"conversionValue"`
}

type identifier struct {
	HashedEmail string `json:"hashedEmail"`
}

type conversionValue struct {
	Label string `json:"conversionLabel"`
}

type uploadRequest struct {
	Conversions    []conversionAdjustment `json:"conversions"`
	PartialFailure bool                   `json:"partialFailure"`
}

type uploadResponse struct {
	Results []struct {
		OrderID string `json:"orderId"`
	} `json:"results"`
	PartialFailureError *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"partialFailureError,omitempty"`
}
