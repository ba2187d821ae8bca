package classify

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-deals-backend/internal/domain"
)

var categoryHints = map[domain.Category]string{
	domain.CategoryMobilesComputers: "phones, laptops, tablets, computer parts and accessories",
	domain.CategoryElectronicsHome:  "TVs, large and small appliances, audio, cameras",
	domain.CategoryFashionBeauty:    "clothing, footwear, watches, bags, grooming and cosmetics",
	domain.CategoryHomeKitchen:      "cookware, furniture, bedding, home improvement, kitchen tools",
	domain.CategoryGroceryHealth:    "food, beverages, household consumables, supplements, personal care staples",
	domain.CategoryKidsSports:       "toys, baby products, fitness and sports equipment",
	domain.CategoryMiscellaneous:    "anything that fits none of the above",
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You clean up shopping deal posts and classify them.\n")
	b.WriteString("Reply with a single JSON object and nothing else:\n")
	b.WriteString(`{"normalizedMessage": string, "category": string}` + "\n\n")
	b.WriteString("normalizedMessage: the post rewritten as plain readable text. Keep product name, price, discount and any placeholders exactly. Drop emojis, hashtags and promotional filler. Do not invent details.\n")
	b.WriteString("category: exactly one of the following ids:\n")
	for _, c := range domain.Categories {
		fmt.Fprintf(&b, "- %s: %s\n", c, categoryHints[c])
	}
	return b.String()
}

func userPrompt(text string) string {
	return "Post:\n" + text
}
