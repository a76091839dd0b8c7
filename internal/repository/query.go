package repository

import (
	"fmt"
	"strconv"
	"strings"

	"sumai_assistant/internal/domain"
)

// Dialect — различия SQL между драйверами.
type Dialect struct {
	Name string
	// Placeholder возвращает n-й (с единицы) параметр запроса
	Placeholder func(n int) string
	// Real — тип для приведения текстовых чисел
	Real string
	// IDColumn — определение первичного ключа в схеме
	IDColumn string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		Real:        "DOUBLE PRECISION",
		IDColumn:    "id BIGSERIAL PRIMARY KEY",
	}
	SQLite = Dialect{
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		Real:        "REAL",
		IDColumn:    "id INTEGER PRIMARY KEY AUTOINCREMENT",
	}
)

const yenPerManYen = 10000

// whereBuilder собирает условия WHERE; "?" в условии заменяется плейсхолдером диалекта.
type whereBuilder struct {
	dialect Dialect
	clauses []string
	args    []any
}

func (b *whereBuilder) add(cond string, args ...any) {
	var sb strings.Builder
	for _, r := range cond {
		if r == '?' {
			b.args = append(b.args, args[0])
			args = args[1:]
			sb.WriteString(b.dialect.Placeholder(len(b.args)))
			continue
		}
		sb.WriteRune(r)
	}
	b.clauses = append(b.clauses, sb.String())
}

func (b *whereBuilder) where() string {
	if len(b.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.clauses, " AND ")
}

func (b *whereBuilder) limit(n int) string {
	b.args = append(b.args, n)
	return " LIMIT " + b.dialect.Placeholder(len(b.args))
}

func contains(s string) string {
	return "%" + s + "%"
}

// SearchQuery строит запрос объектов по критериям. Жёстко фильтруются место,
// цена, тип и точный или перечисленный планировки; остальные оси учитываются при скоринге.
func SearchQuery(d Dialect, reqs domain.RequirementSet, limit int) (string, []any) {
	b := &whereBuilder{dialect: d}
	priceExpr := fmt.Sprintf("CAST(mi_price AS %s)", d.Real)

	if reqs.Prefecture != "" {
		b.add("pref LIKE ?", contains(reqs.Prefecture))
	}
	if reqs.City != "" {
		b.add("address LIKE ?", contains(reqs.City))
	}
	if reqs.Station != "" {
		b.add("(station_name LIKE ? OR traffic1 LIKE ?)", contains(reqs.Station), contains("「"+reqs.Station+"」"))
	}

	if reqs.PriceMin != nil && *reqs.PriceMin > 0 {
		b.add(priceExpr+" >= ?", *reqs.PriceMin*yenPerManYen)
	}
	if reqs.PriceMax != nil && *reqs.PriceMax > 0 {
		b.add(priceExpr+" <= ?", *reqs.PriceMax*yenPerManYen)
	}

	if layouts := layoutFilter(reqs.Layout); len(layouts) > 0 {
		conds := make([]string, len(layouts))
		args := make([]any, len(layouts))
		for i, l := range layouts {
			conds[i] = "floor_plan LIKE ?"
			args[i] = contains(l)
		}
		b.add("("+strings.Join(conds, " OR ")+")", args...)
	}

	if reqs.PropertyType != "" {
		b.add("types LIKE ?", contains(reqs.PropertyType))
	}

	b.add("mi_price IS NOT NULL AND mi_price <> '' AND mi_price <> '0'")
	b.add("address IS NOT NULL AND address <> ''")

	query := "SELECT " + strings.Join(listingColumns, ", ") + " FROM " + ListingTable +
		b.where() +
		" ORDER BY " + priceExpr + " ASC"
	query += b.limit(limit)

	return query, b.args
}

// layoutFilter — планировки для LIKE-фильтра. "2LDK+" не фильтруется:
// подстрока не выражает «не меньше комнат».
func layoutFilter(layout string) []string {
	layout = strings.TrimSpace(layout)
	if layout == "" || strings.Contains(layout, "+") {
		return nil
	}
	var out []string
	for _, l := range strings.Split(layout, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// AddressesQuery — адреса объектов, у которых термин встречается в адресе или названии станции.
func AddressesQuery(d Dialect, term string, limit int) (string, []any) {
	b := &whereBuilder{dialect: d}
	b.add("address IS NOT NULL AND address <> ''")
	b.add("(address LIKE ? OR station_name LIKE ?)", contains(term), contains(term))

	query := "SELECT address FROM " + ListingTable + b.where() + " ORDER BY id"
	query += b.limit(limit)
	return query, b.args
}

// LocationRowsQuery — строки объектов со станцией, похожей на station.
func LocationRowsQuery(d Dialect, station string, limit int) (string, []any) {
	b := &whereBuilder{dialect: d}
	b.add("station_name IS NOT NULL AND station_name <> ''")
	b.add("station_name LIKE ?", contains(station))

	query := "SELECT pref, address, station_name FROM " + ListingTable + b.where() + " ORDER BY id"
	query += b.limit(limit)
	return query, b.args
}

// SchemaStatements — создание таблицы объявлений и индексов.
func SchemaStatements(d Dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + ListingTable + ` (
			` + d.IDColumn + `,
			url            TEXT UNIQUE,
			address        TEXT,
			pref           TEXT,
			station_name   TEXT,
			mi_price       TEXT,
			floor_plan     TEXT,
			exclusive_area TEXT,
			years          TEXT,
			types          TEXT,
			traffic1       TEXT
		)`,
		"CREATE INDEX IF NOT EXISTS idx_listing_pref ON " + ListingTable + " (pref)",
		"CREATE INDEX IF NOT EXISTS idx_listing_station ON " + ListingTable + " (station_name)",
	}
}

// DropStatement — удаление таблицы объявлений.
func DropStatement() string {
	return "DROP TABLE IF EXISTS " + ListingTable
}

// InsertQuery — вставка одной строки; дубликаты по url пропускаются.
func InsertQuery(d Dialect) string {
	placeholders := make([]string, len(listingColumns))
	for i := range listingColumns {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return "INSERT INTO " + ListingTable + " (" + strings.Join(listingColumns, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") ON CONFLICT (url) DO NOTHING"
}
