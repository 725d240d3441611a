package words

// Builtin returns the categories that ship with the binary.
func Builtin() *Lists {
	return NewLists(map[string][]string{
		"Animals": {
			"Otter", "Giraffe", "Penguin", "Octopus", "Kangaroo", "Hedgehog",
			"Flamingo", "Chameleon", "Walrus", "Sloth", "Peacock", "Beaver",
			"Jellyfish", "Armadillo", "Koala", "Porcupine",
		},
		"Food": {
			"Lasagna", "Pancake", "Sushi", "Burrito", "Popcorn", "Croissant",
			"Dumpling", "Pretzel", "Omelette", "Meatball", "Waffle", "Nachos",
			"Cheesecake", "Ramen", "Guacamole", "Kebab",
		},
		"Places": {
			"Airport", "Library", "Lighthouse", "Casino", "Submarine", "Bakery",
			"Hospital", "Museum", "Castle", "Circus", "Cinema", "Volcano",
			"Greenhouse", "Laundromat", "Stadium", "Igloo",
		},
		"Jobs": {
			"Firefighter", "Astronaut", "Plumber", "Lifeguard", "Magician",
			"Dentist", "Pilot", "Librarian", "Chef", "Detective", "Beekeeper",
			"Mime", "Surgeon", "Tailor", "Zookeeper", "Barber",
		},
		"Movies": {
			"Titanic", "Jaws", "Frozen", "Gladiator", "Inception", "Alien",
			"Rocky", "Shrek", "Grease", "Psycho", "Avatar", "Casablanca",
			"Ghostbusters", "Toy Story", "Jurassic Park", "The Matrix",
		},
		"Sports": {
			"Bowling", "Fencing", "Surfing", "Archery", "Curling", "Skiing",
			"Badminton", "Rowing", "Wrestling", "Golf", "Snooker", "Karate",
			"Volleyball", "Polo", "Skateboarding", "Darts",
		},
		"Celebrities": {
			"Albert Einstein", "Cleopatra", "Elvis Presley", "Marilyn Monroe",
			"Napoleon", "Shakespeare", "Beyonce", "Charlie Chaplin",
			"Frida Kahlo", "Mozart", "Taylor Swift", "Leonardo da Vinci",
			"Sherlock Holmes", "Santa Claus", "Dracula", "Mickey Mouse",
		},
	})
}
