package session

// GamesColumns is the persisted row schema, in sheet column order. This is
// the wire contract with the games tab: draft merges only accept these keys
// and BuildRow emits values in exactly this order.
var GamesColumns = []string{
	"game_id",
	"date",
	"opposite_team",
	"game_number",
	"patch",
	"tr",
	"side",
	"win",
	"BB1",
	"BB2",
	"BB3",
	"BP1",
	"BP2",
	"BP3",
	"BB4",
	"BB5",
	"BP4",
	"BP5",
	"RB1",
	"RB2",
	"RB3",
	"RP1",
	"RP2",
	"RP3",
	"RB4",
	"RB5",
	"RP4",
	"RP5",
	"BT",
	"BJ",
	"BM",
	"BA",
	"BS",
	"RT",
	"RJ",
	"RM",
	"RA",
	"RS",
}

var gameColumnSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(GamesColumns))
	for _, column := range GamesColumns {
		set[column] = struct{}{}
	}
	return set
}()

// positionColumns is the subset game_start is allowed to touch:
// blue/red top, jungle, mid, adc, support.
var positionColumns = map[string]struct{}{
	"BT": {}, "BJ": {}, "BM": {}, "BA": {}, "BS": {},
	"RT": {}, "RJ": {}, "RM": {}, "RA": {}, "RS": {},
}

// BuildRow flattens a field map into sheet column order; absent columns
// become empty cells.
func BuildRow(rowData map[string]string) []string {
	row := make([]string, len(GamesColumns))
	for i, column := range GamesColumns {
		row[i] = rowData[column]
	}
	return row
}

// mergeRowData copies whitelisted keys into rowData, silently dropping
// anything outside the schema.
func mergeRowData(rowData, updates map[string]string) {
	for key, value := range updates {
		if _, ok := gameColumnSet[key]; ok {
			rowData[key] = value
		}
	}
}

// Richness counts the non-empty values in a draft payload.
func Richness(draft map[string]string) int {
	n := 0
	for _, value := range draft {
		if value != "" {
			n++
		}
	}
	return n
}
