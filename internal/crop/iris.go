package crop

// IrisID is the identifier of the built-in crop.
const IrisID = "iris"

// Fertilizers of the built-in rate tables.
const (
	Manure          = "Коровяк (1:15)"
	AmmoniumNitrate = "Аммиачная селитра"
	Superphosphate  = "Суперфосфат"
	PotassiumSalt   = "Калийная соль"
)

// Iris returns the built-in bearded iris schedule.
func Iris() Definition {
	return Definition{
		ID:   IrisID,
		Name: "Ирис бородатый",
		Tasks: []TaskTemplate{
			{-30, "Подготовка участка", "Подготовка", "prep"},
			{-15, "Перекопка и выравнивание", "Подготовка", "soil"},
			{-5, "Внесение удобрений перед посадкой", "Подготовка", "fertilize"},

			{0, "Посадка корневищ", "Посадка", "plant"},
			{0, "Обильный полив", "Посадка", "water"},
			{5, "Мульчирование торфом/перегноем", "Посадка", "mulch"},

			{200, "Подкормка по снегу (апрель)", "Отрастание", "fertilize"},
			{210, "Удаление отмерших частей", "Отрастание", "cleanup"},
			{215, "Рыхление почвы", "Отрастание", "soil"},
			{230, "Подкормка в период отрастания", "Отрастание", "fertilize"},
			{235, "Полив обильный", "Отрастание", "water"},
			{240, "Обработка против ржавчины", "Отрастание", "pest"},

			{260, "Подкормка до цветения", "Бутонизация", "fertilize"},
			{265, "Полив перед цветением", "Бутонизация", "water"},
			{270, "Обработка Бордоской жидкостью", "Бутонизация", "disease"},

			{285, "Удаление отцветших соцветий", "Цветение", "cleanup"},
			{290, "Опрыскивание против трипсов и тлей", "Цветение", "pest"},

			{310, "Первая подкормка после цветения", "После цветения", "fertilize"},
			{325, "Вторая подкормка после цветения", "После цветения", "fertilize"},
			{330, "Полив (развитие почек)", "После цветения", "water"},

			{350, "Осенняя перекопка (12-15 см)", "Подготовка к зиме", "soil"},
			{355, "Удаление отмерших листьев", "Подготовка к зиме", "cleanup"},
			{360, "Подокучивание корневищ", "Подготовка к зиме", "prep"},
		},
		Stages: []Stage{
			{
				Key:   "before_flowering",
				Label: "До цветения",
				Rates: []Rate{
					{Nutrient: Manure, PerM2: 1, Unit: "ведер"},
					{Nutrient: AmmoniumNitrate, PerM2: 35},
					{Nutrient: Superphosphate, PerM2: 60},
					{Nutrient: PotassiumSalt, PerM2: 35},
				},
			},
			{
				Key:   "after_flowering",
				Label: "После цветения",
				Rates: []Rate{
					{Nutrient: Superphosphate, PerM2: 50},
					{Nutrient: PotassiumSalt, PerM2: 40},
				},
			},
		},
		Soils: []Soil{
			{
				Key: "sandy_loam", Label: "Супесь", Factor: 0.85,
				Rates: []SoilRate{
					{Stage: "before_flowering", Nutrient: Manure, PerM2: 1},
					{Stage: "before_flowering", Nutrient: AmmoniumNitrate, PerM2: 30},
					{Stage: "before_flowering", Nutrient: Superphosphate, PerM2: 50},
					{Stage: "before_flowering", Nutrient: PotassiumSalt, PerM2: 20},
				},
			},
			{Key: "loam", Label: "Суглинок", Factor: 1},
			{Key: "heavy_loam", Label: "Тяжелый суглинок", Factor: 1},
		},
	}
}

// Builtin returns a table with the built-in crops.
func Builtin() *Table {
	t, err := NewTable(Iris())
	if err != nil {
		// Built-in data is static; a failure here is a programming error.
		panic(err)
	}
	return t
}
