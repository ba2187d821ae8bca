package domain

import "strings"

// Category is the closed set of product categories a message can carry.
type Category string

const (
	CategoryMobilesComputers Category = "mobiles-computers"
	CategoryElectronicsHome  Category = "electronics-home"
	CategoryFashionBeauty    Category = "fashion-beauty"
	CategoryHomeKitchen      Category = "home-kitchen"
	CategoryGroceryHealth    Category = "grocery-health"
	CategoryKidsSports       Category = "kids-sports"
	CategoryMiscellaneous    Category = "miscellaneous"
)

// Categories lists every valid category in classification priority order.
// CategoryMiscellaneous is last and has no keywords.
var Categories = []Category{
	CategoryMobilesComputers,
	CategoryElectronicsHome,
	CategoryFashionBeauty,
	CategoryHomeKitchen,
	CategoryGroceryHealth,
	CategoryKidsSports,
	CategoryMiscellaneous,
}

// CategoryKeywords maps each category to the lowercase terms that identify
// it. Iterate Categories, not this map, when order matters.
var CategoryKeywords = map[Category][]string{
	CategoryMobilesComputers: {
		"phone", "smartphone", "mobile", "iphone", "android", "laptop", "notebook",
		"tablet", "ipad", "macbook", "charger", "power bank", "powerbank", "keyboard",
		"mouse", "ssd", "hdd", "pendrive", "router", "printer", "processor",
	},
	CategoryElectronicsHome: {
		"tv", "led", "oled", "television", "smart tv", "refrigerator", "fridge",
		"washing machine", "air conditioner", "ac", "microwave", "speaker",
		"soundbar", "headphone", "headphones", "earbuds", "camera", "monitor",
		"projector", "inverter", "geyser", "air purifier",
	},
	CategoryFashionBeauty: {
		"shirt", "tshirt", "t-shirt", "jeans", "trousers", "shoes", "sneakers",
		"sandals", "kurta", "saree", "dress", "watch", "sunglasses", "handbag",
		"wallet", "lipstick", "perfume", "shampoo", "serum", "trimmer", "makeup",
	},
	CategoryHomeKitchen: {
		"cooker", "mixer", "grinder", "kettle", "bedsheet", "mattress", "pillow",
		"sofa", "furniture", "cookware", "pan", "tawa", "bottle", "lamp", "curtain",
		"vacuum", "iron", "chimney", "water purifier",
	},
	CategoryGroceryHealth: {
		"rice", "atta", "oil", "ghee", "coffee", "tea", "snacks", "biscuits",
		"protein", "whey", "vitamin", "supplement", "detergent", "diaper",
		"toothpaste", "sanitizer",
	},
	CategoryKidsSports: {
		"toy", "toys", "lego", "cycle", "bicycle", "football", "cricket",
		"badminton", "dumbbell", "dumbbells", "yoga mat", "treadmill", "stroller",
		"school bag",
	},
}

// Valid reports whether c is one of the closed category values.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory normalizes s (trim + lowercase) and reports whether it names
// a valid category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", false
	}
	return c, true
}

// ProductKeywords returns the union of all category keywords, in category
// priority order.
func ProductKeywords() []string {
	var out []string
	for _, c := range Categories {
		out = append(out, CategoryKeywords[c]...)
	}
	return out
}
