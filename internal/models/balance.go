package models

// Balance - нормализованная запись баланса одного актива.
// Выводится per-request из сырого снимка аккаунта, в БД не хранится.
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}
