package config

const (
	// DefaultChildPriceCents is the fixed price for the 6-11 bracket (R$ 60,00).
	DefaultChildPriceCents = 6000
	// DefaultAdultPriceCents is the fixed price for 12+ and unknown birth dates (R$ 120,00).
	DefaultAdultPriceCents = 12000

	DefaultRoomCount    = 10
	DefaultRoomCapacity = 4
	DefaultBedConfig    = "1 casal + 2 solteiro"
)
