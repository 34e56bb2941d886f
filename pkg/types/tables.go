// This file defines the standard table names.
package types

// Standard table names for Directory.GetTable.
const (
	TableFestivals  = "festivals"
	TableCategories = "categories"
	TablePlaces     = "places"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	TableFestivals,
	TableCategories,
	TablePlaces,
}
