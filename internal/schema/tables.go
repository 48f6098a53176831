package schema

// Source file layouts. These mirror the registry extract column order exactly
// and are versioned here, not user-configurable. Source columns are all text;
// typing happens when rows are split into the target tables.

func textFields(names ...string) []Field {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n, Type: TypeString, Nullable: true}
	}
	return fields
}

var masterSource = &Descriptor{
	Name: "master",
	Fields: textFields(
		"n_number", "serial_number", "mfr_mdl_code", "eng_mfr_mdl", "year_mfr",
		"type_registrant", "name", "street", "street2", "city", "state",
		"zip_code", "region", "county", "country", "last_action_date",
		"cert_issue_date", "certification", "type_aircraft", "type_engine",
		"status_code", "mode_s_code", "fract_owner", "air_worth_date",
		"other_names_1", "other_names_2", "other_names_3", "other_names_4",
		"other_names_5", "expiration_date", "unique_id", "kit_mfr",
		"kit_model", "mode_s_code_hex",
	),
}

var acftrefSource = &Descriptor{
	Name: "acftref",
	Fields: textFields(
		"code", "mfr", "model", "type_acft", "type_eng", "ac_cat",
		"build_cert_ind", "no_eng", "no_seats", "ac_weight", "speed",
		"tc_data_sheet",
	),
}

var engineSource = &Descriptor{
	Name: "engine",
	Fields: textFields(
		"code", "mfr", "model", "type", "horsepower", "thrust",
	),
}

// SourceMaster, SourceAcftRef and SourceEngine name the raw extract layouts.
const (
	SourceMaster  = "master"
	SourceAcftRef = "acftref"
	SourceEngine  = "engine"
)

// Target tables. One wide master row splits into exactly one aircraft row,
// one registration row and zero-or-one owner row; the two reference extracts
// map one-to-one onto aircraft_make_model and engines.

var Aircraft = &Descriptor{
	Name: "aircraft",
	Fields: []Field{
		{Name: "n_number", Type: TypeString, Nullable: false},
		{Name: "serial_number", Type: TypeString, Nullable: true},
		{Name: "mfr_mdl_code", Type: TypeString, Nullable: true},
		{Name: "engine_code", Type: TypeString, Nullable: true},
		{Name: "year_mfr", Type: TypeInt32, Nullable: true},
		{Name: "type_aircraft", Type: TypeString, Nullable: true},
		{Name: "type_engine", Type: TypeString, Nullable: true},
		{Name: "status_code", Type: TypeString, Nullable: true},
		{Name: "mode_s_code_hex", Type: TypeString, Nullable: true},
		{Name: "fract_owner", Type: TypeString, Nullable: true},
	},
}

var Registrations = &Descriptor{
	Name: "registrations",
	Fields: []Field{
		{Name: "n_number", Type: TypeString, Nullable: false},
		{Name: "type_registrant", Type: TypeString, Nullable: true},
		{Name: "cert_issue_date", Type: TypeDate32, Nullable: true},
		{Name: "expiration_date", Type: TypeDate32, Nullable: true},
		{Name: "last_action_date", Type: TypeDate32, Nullable: true},
		{Name: "air_worth_date", Type: TypeDate32, Nullable: true},
		{Name: "status_code", Type: TypeString, Nullable: true},
		{Name: "certification", Type: TypeString, Nullable: true},
		{Name: "region", Type: TypeString, Nullable: true},
		{Name: "county", Type: TypeString, Nullable: true},
		{Name: "country", Type: TypeString, Nullable: true},
	},
}

var Owners = &Descriptor{
	Name: "owners",
	Fields: []Field{
		{Name: "owner_id", Type: TypeInt64, Nullable: false},
		{Name: "n_number", Type: TypeString, Nullable: false},
		{Name: "owner_type", Type: TypeString, Nullable: true},
		{Name: "name_raw", Type: TypeString, Nullable: true},
		{Name: "street_raw", Type: TypeString, Nullable: true},
		{Name: "street2_raw", Type: TypeString, Nullable: true},
		{Name: "city_raw", Type: TypeString, Nullable: true},
		{Name: "state_raw", Type: TypeString, Nullable: true},
		{Name: "zip_raw", Type: TypeString, Nullable: true},
		{Name: "owner_name_std", Type: TypeString, Nullable: true},
		{Name: "address_all_std", Type: TypeString, Nullable: true},
		{Name: "city_std", Type: TypeString, Nullable: true},
		{Name: "state_std", Type: TypeString, Nullable: true},
		{Name: "zip5", Type: TypeString, Nullable: true},
	},
}

var AircraftMakeModel = &Descriptor{
	Name: "aircraft_make_model",
	Fields: []Field{
		{Name: "mfr_mdl_code", Type: TypeString, Nullable: false},
		{Name: "maker", Type: TypeString, Nullable: true},
		{Name: "model", Type: TypeString, Nullable: true},
		{Name: "type_acft", Type: TypeString, Nullable: true},
		{Name: "num_engines", Type: TypeInt32, Nullable: true},
		{Name: "num_seats", Type: TypeInt32, Nullable: true},
		{Name: "ac_weight", Type: TypeString, Nullable: true},
		{Name: "speed", Type: TypeInt32, Nullable: true},
	},
}

var Engines = &Descriptor{
	Name: "engines",
	Fields: []Field{
		{Name: "engine_code", Type: TypeString, Nullable: false},
		{Name: "maker", Type: TypeString, Nullable: true},
		{Name: "model", Type: TypeString, Nullable: true},
		{Name: "type", Type: TypeString, Nullable: true},
		{Name: "horsepower", Type: TypeInt32, Nullable: true},
		{Name: "thrust", Type: TypeInt32, Nullable: true},
	},
}
