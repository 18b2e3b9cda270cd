/*
Package qrstyle renders scannable, styled QR codes from a typed content description.

The content (a link, a WiFi credential, a contact card and so on) is first
encoded into its canonical payload string by the content package. The payload
is drawn as a symbol with the requested dot and corner styles, painted with an
optional linear or radial gradient and decorated with an optional logo, which
can be clipped to a shape and placed on a plate with a border and a shadow.
The result is encoded as PNG, JPEG, BMP, TIFF or GIF.

The package provides a command line interface rendering JSON job files.
To check the supported commands type:

	$ qrstyle --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"fmt"
		"os"
		"time"

		"github.com/esimov/qrstyle"
		"github.com/esimov/qrstyle/asset"
		"github.com/esimov/qrstyle/content"
	)

	func main() {
		p := qrstyle.NewProcessor(asset.NewRouter(".", 10*time.Second), nil)

		style := qrstyle.DefaultStyle()
		style.DotStyle = qrstyle.DotRounded

		err := p.RenderTo(context.Background(), os.Stdout, content.Link{URL: "example.com"}, style)
		if err != nil {
			fmt.Printf("Error rendering the code: %s", err.Error())
		}
	}
*/
package qrstyle
