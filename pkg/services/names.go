package services

import "math/rand/v2"

var (
	nameAdjectives = []string{
		"amber", "brave", "calm", "clever", "crisp", "eager", "fancy", "gentle",
		"happy", "jolly", "lively", "lucky", "mellow", "nimble", "quiet", "rapid",
		"shiny", "steady", "swift", "tidy", "vivid", "witty", "young", "zesty",
	}
	nameNouns = []string{
		"badger", "canyon", "comet", "falcon", "forest", "harbor", "island", "lantern",
		"meadow", "nebula", "otter", "pebble", "pine", "river", "rocket", "summit",
		"tiger", "valley", "willow", "zephyr",
	}
)

// randomName returns a readable slug such as "swift-otter-river".
func randomName() string {
	pick := func(words []string) string { return words[rand.IntN(len(words))] }

	return pick(nameAdjectives) + "-" + pick(nameNouns) + "-" + pick(nameNouns)
}
