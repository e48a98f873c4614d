package payment

// Package — пакет пополнения: сколько монет получает пользователь
// и сколько это стоит в долларах.
type Package struct {
	Coins    float64
	PriceUSD float64
}

// Packages — доступные пакеты пополнения в порядке возрастания.
var Packages = []Package{
	{Coins: 500, PriceUSD: 25},
	{Coins: 1000, PriceUSD: 50},
	{Coins: 3000, PriceUSD: 150},
	{Coins: 10000, PriceUSD: 500},
}

// PackageByCoins возвращает пакет по числу монет.
func PackageByCoins(coins float64) (Package, bool) {
	for _, p := range Packages {
		if p.Coins == coins {
			return p, true
		}
	}
	return Package{}, false
}

// PackageByUSD возвращает пакет по оплаченной сумме. Используется вебхуком,
// когда уведомление не содержит числа монет.
func PackageByUSD(amountUSD float64) (Package, bool) {
	for _, p := range Packages {
		if p.PriceUSD == amountUSD {
			return p, true
		}
	}
	return Package{}, false
}
