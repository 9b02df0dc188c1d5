// Package testing provides test utilities for lockql.
package testing

import (
	"errors"
	"strings"
	"testing"

	"github.com/zoobzio/dbml"
	"github.com/zoobzio/lockql"
)

// FixtureProject returns the DBML project behind TestSchema: an inheritance
// chain entity <- country <- eucountry, cities pointing at countries, and
// people born in (and optionally died in) a city with an optional profile.
func FixtureProject() *dbml.Project {
	project := dbml.NewProject("lockql_fixture")

	entity := dbml.NewTable("entity")
	entity.AddColumn(dbml.NewColumn("id", "bigint"))
	project.AddTable(entity)

	country := dbml.NewTable("country")
	country.AddColumn(dbml.NewColumn("entity_ptr_id", "bigint"))
	country.AddColumn(dbml.NewColumn("name", "varchar"))
	project.AddTable(country)

	eucountry := dbml.NewTable("eucountry")
	eucountry.AddColumn(dbml.NewColumn("country_ptr_id", "bigint"))
	eucountry.AddColumn(dbml.NewColumn("join_date", "date"))
	project.AddTable(eucountry)

	city := dbml.NewTable("city")
	city.AddColumn(dbml.NewColumn("id", "bigint"))
	city.AddColumn(dbml.NewColumn("name", "varchar"))
	city.AddColumn(dbml.NewColumn("country_id", "bigint"))
	project.AddTable(city)

	eucity := dbml.NewTable("eucity")
	eucity.AddColumn(dbml.NewColumn("id", "bigint"))
	eucity.AddColumn(dbml.NewColumn("name", "varchar"))
	eucity.AddColumn(dbml.NewColumn("country_id", "bigint"))
	project.AddTable(eucity)

	person := dbml.NewTable("person")
	person.AddColumn(dbml.NewColumn("id", "bigint"))
	person.AddColumn(dbml.NewColumn("name", "varchar"))
	person.AddColumn(dbml.NewColumn("born_id", "bigint"))
	person.AddColumn(dbml.NewColumn("died_id", "bigint"))
	project.AddTable(person)

	profile := dbml.NewTable("personprofile")
	profile.AddColumn(dbml.NewColumn("id", "bigint"))
	profile.AddColumn(dbml.NewColumn("person_id", "bigint"))
	project.AddTable(profile)

	return project
}

// FixtureModels returns the model definitions registered by TestSchema.
func FixtureModels() []lockql.ModelDef {
	return []lockql.ModelDef{
		{Name: "Entity"},
		{Name: "Country", Parent: "Entity"},
		{Name: "EUCountry", Parent: "Country"},
		{Name: "City", Fields: []lockql.FieldDef{
			{Name: "country", Kind: lockql.ForeignKey, Target: "Country"},
		}},
		{Name: "EUCity", Fields: []lockql.FieldDef{
			{Name: "country", Kind: lockql.ForeignKey, Target: "EUCountry"},
		}},
		{Name: "CityCountryProxy", Proxy: "City"},
		{Name: "Person", Fields: []lockql.FieldDef{
			{Name: "born", Kind: lockql.ForeignKey, Target: "City"},
			{Name: "died", Kind: lockql.ForeignKey, Target: "City", Null: true},
		}},
		{Name: "PersonProfile", Fields: []lockql.FieldDef{
			{Name: "person", Kind: lockql.OneToOne, Target: "Person", RelatedName: "profile"},
		}},
	}
}

// TestSchema creates a schema with the fixture models registered.
func TestSchema(t *testing.T) *lockql.Schema {
	t.Helper()

	schema, err := lockql.NewFromDBML(FixtureProject())
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	if err := schema.Register(FixtureModels()...); err != nil {
		t.Fatalf("Failed to register fixture models: %v", err)
	}
	return schema
}

// AssertSQL compares expected and actual SQL, reporting detailed differences.
func AssertSQL(t *testing.T, expected, actual string) {
	t.Helper()
	if expected != actual {
		t.Errorf("SQL mismatch:\nExpected: %s\nActual:   %s", expected, actual)
	}
}

// AssertParams checks that the required params match expected, in order.
func AssertParams(t *testing.T, expected, actual []string) {
	t.Helper()
	if strings.Join(expected, ",") != strings.Join(actual, ",") {
		t.Errorf("Param mismatch:\nExpected: %v\nActual:   %v", expected, actual)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertErrorContains checks that error message contains substring.
func AssertErrorContains(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error containing %q but got nil", substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("Expected error containing %q, got: %v", substr, err)
	}
}

// AssertErrorMessage checks the exact error message.
func AssertErrorMessage(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error %q but got nil", msg)
	}
	if err.Error() != msg {
		t.Errorf("Error mismatch:\nExpected: %s\nActual:   %s", msg, err.Error())
	}
}

// AssertErrorAs checks that err unwraps to an error of type E and returns it.
func AssertErrorAs[E error](t *testing.T, err error) E {
	t.Helper()
	var target E
	if err == nil {
		t.Fatalf("Expected %T but got nil", target)
	}
	if !errors.As(err, &target) {
		t.Fatalf("Expected %T, got %T: %v", target, err, err)
	}
	return target
}

// AssertPanics verifies that a function panics.
func AssertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic but function completed normally")
		}
	}()
	fn()
}
