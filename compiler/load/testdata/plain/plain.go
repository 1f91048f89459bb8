package plain

func Query(query string) string { return query }

func Use() string { return Query("SELECT 1") }
