package header // want "Add or update the header of this file."

func Answer() int { return 42 }
