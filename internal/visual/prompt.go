package visual

import (
	"fmt"
	"strings"

	"dealerstudio/internal/core"
	"dealerstudio/internal/scoring"
)

var prohibitedActions = []string{
	"Do not add any text, captions, prices or fake overlays to the image",
	"Do not make the car look newer than it is or remove visible wear",
	"Do not change the car's colour, body shape, wheels or number of doors",
	"Do not stamp logos or watermarks onto the image",
	"Do not add people in a way that hides the car",
}

// BuildPrompt composes the image edit instruction for one car.
func BuildPrompt(car core.Car, dealer core.DealerContext, t scoring.Transformation, spec scoring.PlatformSpec) string {
	var b strings.Builder

	b.WriteString("Edit the provided photo of this exact car. Keep the vehicle itself identical and photorealistic.\n\n")

	b.WriteString("SOURCE IMAGE: the first image is the dealer's real photo of the car.\n\n")

	b.WriteString("CAR:\n")
	fmt.Fprintf(&b, "- %s\n", car.DisplayName())
	if car.FuelType != "" {
		fmt.Fprintf(&b, "- Fuel: %s\n", car.FuelType)
	}
	if car.Transmission != "" {
		fmt.Fprintf(&b, "- Transmission: %s\n", car.Transmission)
	}

	fmt.Fprintf(&b, "\nSCENE (%s):\n", t.Name)
	fmt.Fprintf(&b, "- Place the car in %s\n", t.Scene)
	fmt.Fprintf(&b, "- Lighting: %s\n", t.Lighting)
	fmt.Fprintf(&b, "- Story: the image should convey %s\n", t.Storytelling)
	fmt.Fprintf(&b, "- Compose for a %s frame suited to %s\n", spec.AspectRatio, spec.Platform)

	b.WriteString("\nBRANDING CONTEXT:\n")
	if dealer.BusinessName != "" {
		fmt.Fprintf(&b, "- Marketing image for %s", dealer.BusinessName)
		if dealer.Location != "" {
			fmt.Fprintf(&b, " in %s", dealer.Location)
		}
		b.WriteString("\n")
	}
	if dealer.Location != "" {
		fmt.Fprintf(&b, "- The setting should feel local to %s, India\n", dealer.Location)
	}

	b.WriteString("\nPROHIBITED:\n")
	for _, p := range prohibitedActions {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	return b.String()
}
