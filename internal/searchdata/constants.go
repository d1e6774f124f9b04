package searchdata

import "fmt"

// Category selects one family of Doxygen search buckets.
type Category string

// Doxygen writes one set of alphabetical bucket files per category,
// e.g. all_0.js ... all_1f.js, functions_0.js ...
const (
	CategoryAll        Category = "all"
	CategoryClasses    Category = "classes"
	CategoryFunctions  Category = "functions"
	CategoryVariables  Category = "variables"
	CategoryTypedefs   Category = "typedefs"
	CategoryEnums      Category = "enums"
	CategoryEnumValues Category = "enumvalues"
	CategoryDefines    Category = "defines"
	CategoryFiles      Category = "files"
	CategoryNamespaces Category = "namespaces"
	CategoryPages      Category = "pages"
	CategoryRelated    Category = "related"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryAll, CategoryClasses, CategoryFunctions, CategoryVariables,
	CategoryTypedefs, CategoryEnums, CategoryEnumValues, CategoryDefines,
	CategoryFiles, CategoryNamespaces, CategoryPages, CategoryRelated,
}

// Generator is recorded in the manifest of snapshots built from searchData.
const Generator = "doxygen-searchdata"

// ParseCategory validates a category name. An empty name means CategoryAll.
func ParseCategory(name string) (Category, error) {
	if name == "" {
		return CategoryAll, nil
	}
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown search category %q", name)
}
