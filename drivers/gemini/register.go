package gemini

import "github.com/hiddenpath/relay/drivers"

func init() {
	drivers.Register(drivers.StyleGemini, func(apiKey string) drivers.Driver {
		return New(apiKey)
	})
}
