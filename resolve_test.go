package lockql_test

import (
	"reflect"
	"testing"

	"github.com/zoobzio/lockql"
	"github.com/zoobzio/lockql/oracle"
	"github.com/zoobzio/lockql/postgres"
	lqtest "github.com/zoobzio/lockql/testing"
)

const personColumns = `"person"."id", "person"."name", "person"."born_id", "person"."died_id"`

func TestOfInvalidFields(t *testing.T) {
	schema := lqtest.TestSchema(t)

	tests := []struct {
		name string
		b    *lockql.Builder
		want string
	}{
		{
			name: "unknown and scalar names",
			b: schema.Select("Person").SelectRelated("born__country").
				ForUpdate(lockql.Of("born__nonexistent", "born__name")),
			want: "Invalid field name(s) given in select_for_update(of=(...)): born__nonexistent, born__name. " +
				"Only relational fields followed in the query are allowed. " +
				"Choices are: self, born, born__country, born__country__entity_ptr.",
		},
		{
			name: "repeated invalid names are reported once",
			b: schema.Select("Person").SelectRelated("born").
				ForUpdate(lockql.Of("born__name", "self", "born__name", "nowhere")),
			want: "Invalid field name(s) given in select_for_update(of=(...)): born__name, nowhere. " +
				"Only relational fields followed in the query are allowed. Choices are: self, born.",
		},
		{
			name: "relation not selected",
			b:    schema.Select("Person").ForShare(lockql.Of("born")),
			want: "Invalid field name(s) given in select_for_share(of=(...)): born. " +
				"Only relational fields followed in the query are allowed. Choices are: self.",
		},
		{
			name: "inherited parents through a relation",
			b:    schema.Select("EUCity").SelectRelated("country").ForUpdate(lockql.Of("name")),
			want: "Invalid field name(s) given in select_for_update(of=(...)): name. " +
				"Only relational fields followed in the query are allowed. " +
				"Choices are: self, country, country__country_ptr, country__country_ptr__entity_ptr.",
		},
		{
			name: "inherited parents of the root",
			b:    schema.Select("EUCountry").ForUpdate(lockql.Of("name")),
			want: "Invalid field name(s) given in select_for_update(of=(...)): name. " +
				"Only relational fields followed in the query are allowed. " +
				"Choices are: self, country_ptr, country_ptr__entity_ptr.",
		},
		{
			name: "proxy model",
			b:    schema.Select("CityCountryProxy").SelectRelated("country").ForUpdate(lockql.Of("unknown")),
			want: "Invalid field name(s) given in select_for_update(of=(...)): unknown. " +
				"Only relational fields followed in the query are allowed. " +
				"Choices are: self, country, country__entity_ptr.",
		},
		{
			name: "reverse one to one excluding nulls",
			b: schema.Select("Person").SelectRelated("born", "profile").ExcludeNull("profile").
				ForUpdate(lockql.Of("name")),
			want: "Invalid field name(s) given in select_for_update(of=(...)): name. " +
				"Only relational fields followed in the query are allowed. Choices are: self, born, profile.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			invalid := lqtest.AssertErrorAs[*lockql.InvalidFieldError](t, err)
			lqtest.AssertErrorMessage(t, invalid, tt.want)
		})
	}
}

func TestOfInvalidFieldsListsEveryName(t *testing.T) {
	schema := lqtest.TestSchema(t)

	_, err := schema.Select("Person").SelectRelated("born").
		ForUpdate(lockql.Of("self", "x", "born", "y")).
		Build()
	invalid := lqtest.AssertErrorAs[*lockql.InvalidFieldError](t, err)
	if !reflect.DeepEqual(invalid.Fields, []string{"x", "y"}) {
		t.Errorf("Fields = %v, want [x y]", invalid.Fields)
	}
	if !reflect.DeepEqual(invalid.Choices, []string{"self", "born"}) {
		t.Errorf("Choices = %v, want [self born]", invalid.Choices)
	}
}

func TestOfTargets(t *testing.T) {
	schema := lqtest.TestSchema(t)

	tests := []struct {
		name string
		b    *lockql.Builder
		want string
	}{
		{
			name: "self and related",
			b: schema.Select("Person").SelectRelated("born__country").
				ForUpdate(lockql.Of("self", "born__country")),
			want: `SELECT ` + personColumns + ` FROM "person"` +
				` INNER JOIN "city" ON "person"."born_id" = "city"."id"` +
				` INNER JOIN "country" ON "city"."country_id" = "country"."entity_ptr_id"` +
				` INNER JOIN "entity" ON "country"."entity_ptr_id" = "entity"."id"` +
				` FOR UPDATE OF "person", "country"`,
		},
		{
			name: "inherited parents",
			b:    schema.Select("EUCountry").ForShare(lockql.Of("country_ptr", "country_ptr__entity_ptr")),
			want: `SELECT "eucountry"."country_ptr_id", "eucountry"."join_date", "country"."entity_ptr_id", "country"."name", "entity"."id"` +
				` FROM "eucountry"` +
				` INNER JOIN "country" ON "eucountry"."country_ptr_id" = "country"."entity_ptr_id"` +
				` INNER JOIN "entity" ON "country"."entity_ptr_id" = "entity"."id"` +
				` FOR SHARE OF "country", "entity"`,
		},
		{
			name: "proxy resolves to the concrete table",
			b: schema.Select("CityCountryProxy").SelectRelated("country").
				ForUpdate(lockql.Of("self", "country")),
			want: `SELECT "city"."id", "city"."name", "city"."country_id" FROM "city"` +
				` INNER JOIN "country" ON "city"."country_id" = "country"."entity_ptr_id"` +
				` INNER JOIN "entity" ON "country"."entity_ptr_id" = "entity"."id"` +
				` FOR UPDATE OF "city", "country"`,
		},
		{
			name: "duplicates collapse",
			b:    schema.Select("City").ForUpdate(lockql.Of("self", "self")),
			want: `SELECT "city"."id", "city"."name", "city"."country_id" FROM "city" FOR UPDATE OF "city"`,
		},
		{
			name: "repeated table is aliased",
			b: schema.Select("Person").SelectRelated("born", "died").ExcludeNull("died").
				ForUpdate(lockql.Of("born", "died"), lockql.Nowait()),
			want: `SELECT ` + personColumns + ` FROM "person"` +
				` INNER JOIN "city" ON "person"."born_id" = "city"."id"` +
				` INNER JOIN "city" "T3" ON "person"."died_id" = "T3"."id"` +
				` WHERE "T3"."id" IS NOT NULL` +
				` FOR UPDATE OF "city", "T3" NOWAIT`,
		},
		{
			name: "reverse one to one excluding nulls",
			b: schema.Select("Person").SelectRelated("profile").ExcludeNull("profile").
				ForUpdate(lockql.Of("self", "profile")),
			want: `SELECT ` + personColumns + ` FROM "person"` +
				` INNER JOIN "personprofile" ON "person"."id" = "personprofile"."person_id"` +
				` WHERE "personprofile"."id" IS NOT NULL` +
				` FOR UPDATE OF "person", "personprofile"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.b.Render(postgres.New())
			lqtest.AssertNoError(t, err)
			lqtest.AssertSQL(t, tt.want, result.SQL)
		})
	}
}

func TestOfColumnTargets(t *testing.T) {
	schema := lqtest.TestSchema(t)

	tests := []struct {
		name string
		b    *lockql.Builder
		want string
	}{
		{
			name: "inherited key columns",
			b:    schema.Select("EUCountry").ForUpdate(lockql.Of("self", "country_ptr", "country_ptr__entity_ptr")),
			want: ` FOR UPDATE OF "eucountry"."country_ptr_id", "country"."entity_ptr_id", "entity"."id"`,
		},
		{
			name: "related key columns",
			b:    schema.Select("Person").SelectRelated("born__country").ForUpdate(lockql.Of("self", "born__country")),
			want: ` FOR UPDATE OF "person"."id", "country"."entity_ptr_id"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.b.Render(oracle.New())
			lqtest.AssertNoError(t, err)
			if got := result.SQL[len(result.SQL)-len(tt.want):]; got != tt.want {
				t.Errorf("lock clause = %q, want %q\nSQL: %s", got, tt.want, result.SQL)
			}
		})
	}
}

func TestOfNullableRelation(t *testing.T) {
	schema := lqtest.TestSchema(t)

	tests := []struct {
		name string
		b    *lockql.Builder
		want string
	}{
		{
			name: "reverse one to one",
			b:    schema.Select("Person").SelectRelated("profile").ForUpdate(lockql.Of("profile")),
			want: "select_for_update(of=(...)) cannot lock 'profile' because it is on the nullable side of an outer join; exclude NULL profile rows first.",
		},
		{
			name: "nullable foreign key",
			b:    schema.Select("Person").SelectRelated("died").ForShare(lockql.Of("self", "died")),
			want: "select_for_share(of=(...)) cannot lock 'died' because it is on the nullable side of an outer join; exclude NULL died rows first.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			cfg := lqtest.AssertErrorAs[*lockql.ConfigurationError](t, err)
			lqtest.AssertErrorMessage(t, cfg, tt.want)
		})
	}
}

func TestOfResolutionIsRepeatable(t *testing.T) {
	schema := lqtest.TestSchema(t)

	b := schema.Select("Person").SelectRelated("born__country").
		ForUpdate(lockql.Of("born__country", "self", "born__country__entity_ptr"))

	first, err := b.Build()
	lqtest.AssertNoError(t, err)
	second, err := b.Build()
	lqtest.AssertNoError(t, err)

	if !reflect.DeepEqual(first.Lock, second.Lock) {
		t.Errorf("lock differs between builds:\n%+v\n%+v", first.Lock, second.Lock)
	}
	var paths []string
	for _, target := range first.Lock.Of {
		paths = append(paths, target.Path)
	}
	if !reflect.DeepEqual(paths, []string{"born__country", "self", "born__country__entity_ptr"}) {
		t.Errorf("targets = %v, want request order", paths)
	}
}
