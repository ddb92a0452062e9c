package board

// Capital is the city holding Atilla's court. It never moves.
const Capital = "Etil"

// Region names
const (
	RegionPannonia     = "Pannónia"
	RegionSzkitia      = "Szkítia"
	RegionAlanfold     = "Alánföld"
	RegionJazygfold    = "Jazygföld"
	RegionBolgarfold   = "Bolgárföld"
	RegionGepidafold   = "Gepidaföld"
	RegionDakia        = "Dákia"
	RegionMozia        = "Mözia"
	RegionAtillaUdvara = "Atilla Udvara"
	RegionTuranAlfold  = "Turán-alföld"
	RegionMongolia     = "Mongólia"
	RegionUjgur        = "Ujgur Tartomány"
)

// Regions lists every region of the map.
var Regions = []string{
	RegionPannonia, RegionSzkitia, RegionAlanfold, RegionJazygfold,
	RegionBolgarfold, RegionGepidafold, RegionDakia, RegionMozia,
	RegionAtillaUdvara, RegionTuranAlfold, RegionMongolia, RegionUjgur,
}

// CityDef is the static definition of a city on the map.
type CityDef struct {
	Name   string
	Region string
}

// cityDefs is ordered north to south, west to east. The order is the
// canonical iteration order for every board-wide scan.
var cityDefs = []CityDef{
	{"Dnyeszter", RegionSzkitia},
	{"Kolozsvár", RegionDakia},
	{"Várhely", RegionDakia},
	{"Kasgár", RegionUjgur},
	{"Kobdo", RegionMongolia},
	{"Karakorum", RegionMongolia},

	{"Szombathely", RegionPannonia},
	{"Gyulafehérvár", RegionDakia},
	{"Boriszténész", RegionSzkitia},
	{"Buhara", RegionTuranAlfold},
	{"Turfán", RegionUjgur},
	{"Ordosz", RegionMongolia},

	{"Buda", RegionPannonia},
	{"Szerém", RegionGepidafold},
	{"Etil", RegionAtillaUdvara},
	{"Don", RegionAlanfold},
	{"Szamarkand", RegionTuranAlfold},
	{"Kubán", RegionAlanfold},

	{"Pécs", RegionPannonia},
	{"Szeged", RegionJazygfold},
	{"Nándorfehérvár", RegionGepidafold},
	{"Temesvár", RegionMozia},
	{"Várna", RegionBolgarfold},
	{"Ódesszosz", RegionBolgarfold},

	{"Partiskum", RegionJazygfold},
	{"Nikápoly", RegionMozia},
	{"Aracsa", RegionMozia},
}

// adjacency lists neighbors per city. Neighbor order matters: BFS discovers
// cities in this order, which breaks ties between equally short routes.
var adjacency = map[string][]string{
	"Etil": {"Buda", "Szerém", "Gyulafehérvár", "Boriszténész", "Don", "Várna", "Temesvár", "Szeged", "Szamarkand"},

	"Buda":        {"Etil", "Szombathely", "Pécs", "Szerém"},
	"Szombathely": {"Buda", "Pécs"},
	"Pécs":        {"Buda", "Szombathely", "Szeged", "Szerém"},

	"Szerém":         {"Etil", "Buda", "Pécs", "Nándorfehérvár"},
	"Nándorfehérvár": {"Szerém", "Temesvár"},

	"Gyulafehérvár": {"Etil", "Kolozsvár", "Várhely", "Boriszténész"},
	"Kolozsvár":     {"Gyulafehérvár", "Várhely"},
	"Várhely":       {"Gyulafehérvár", "Kolozsvár", "Temesvár"},

	"Boriszténész": {"Etil", "Dnyeszter", "Gyulafehérvár", "Don"},
	"Dnyeszter":    {"Boriszténész"},

	"Don":   {"Etil", "Boriszténész", "Kubán", "Szamarkand", "Karakorum"},
	"Kubán": {"Don", "Várna", "Szamarkand"},

	"Várna":     {"Etil", "Kubán", "Ódesszosz", "Nikápoly"},
	"Ódesszosz": {"Várna"},

	"Temesvár": {"Etil", "Nándorfehérvár", "Aracsa", "Várhely", "Nikápoly", "Partiskum"},
	"Aracsa":   {"Temesvár", "Nikápoly"},
	"Nikápoly": {"Temesvár", "Aracsa", "Várna"},

	"Szeged":    {"Etil", "Pécs", "Partiskum"},
	"Partiskum": {"Szeged", "Temesvár"},

	"Szamarkand": {"Etil", "Don", "Kubán", "Buhara", "Karakorum", "Turfán"},
	"Buhara":     {"Szamarkand", "Turfán"},

	"Karakorum": {"Szamarkand", "Ordosz", "Turfán", "Don"},
	"Ordosz":    {"Karakorum", "Kobdo"},
	"Kobdo":     {"Ordosz", "Kasgár"},

	"Turfán": {"Buhara", "Karakorum", "Kasgár", "Szamarkand"},
	"Kasgár": {"Turfán", "Kobdo"},
}

// CityDefs returns the static city definitions in canonical order.
func CityDefs() []CityDef {
	out := make([]CityDef, len(cityDefs))
	copy(out, cityDefs)
	return out
}
