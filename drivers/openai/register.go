package openai

import "github.com/hiddenpath/relay/drivers"

func init() {
	drivers.Register(drivers.StyleOpenAI, func(apiKey string) drivers.Driver {
		return New(apiKey)
	})
}
