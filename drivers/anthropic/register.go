package anthropic

import "github.com/hiddenpath/relay/drivers"

func init() {
	drivers.Register(drivers.StyleAnthropic, func(apiKey string) drivers.Driver {
		return New(apiKey)
	})
}
