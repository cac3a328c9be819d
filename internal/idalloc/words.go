package idalloc

// Vocabularies are fixed: changing them changes the namespace size and the
// distribution of future identifiers.

var adjectives = [...]string{
	"able", "agile", "airy", "amber", "ample", "ancient", "arctic", "ardent", "autumn",
	"azure", "balmy", "bold", "brave", "breezy", "brisk", "bright", "broad", "bronze",
	"calm", "candid", "careful", "cedar", "cheerful", "chilly", "civil", "clever", "cloudy",
	"coastal", "cobalt", "cosmic", "cozy", "crimson", "crisp", "curious", "dapper",
	"daring", "dawn", "deft", "dusky", "eager", "early", "earnest", "easy", "elder",
	"electric", "elegant", "emerald", "epic", "even", "exact", "fair", "faithful", "fancy",
	"fearless", "fervent", "fiery", "fine", "firm", "fleet", "fluent", "flying", "fond",
	"frank", "free", "fresh", "frosty", "gallant", "gentle", "giant", "gilded", "glad",
	"gleaming", "golden", "graceful", "grand", "green", "hardy", "hazel", "hearty",
	"hidden", "hollow", "honest", "humble", "icy", "idle", "indigo", "inner", "iron",
	"ivory", "jade", "jolly", "jovial", "keen", "kind", "lively", "lofty", "loyal", "lucid",
	"lucky", "lunar", "mellow", "merry", "mighty", "misty", "modest", "mossy", "nimble",
	"noble", "northern", "oaken", "olive", "opal", "patient", "pearl", "placid", "plucky",
	"polar", "polite", "proud", "quick", "quiet", "radiant", "rapid", "rare", "ready",
	"regal", "restless", "rosy", "royal", "rustic", "sage", "scarlet", "serene", "sharp",
	"shining", "silent", "silver", "simple", "sleek", "smooth", "snowy", "solar", "solid",
	"sparkling", "spry", "steady", "stellar", "stoic", "stormy", "sturdy", "sunny", "swift",
	"tidy", "timber", "tranquil", "true", "twilight", "upbeat", "urban", "valiant",
	"velvet", "vivid", "warm", "wandering", "wild", "windy", "wise", "witty", "woven",
	"young", "zealous", "zesty",
}

var nouns = [...]string{
	"acorn", "alder", "anchor", "antler", "apple", "arrow", "aspen", "atlas", "badger",
	"banner", "barley", "basin", "beacon", "bear", "beaver", "birch", "bison", "bloom",
	"boulder", "bramble", "brook", "buffalo", "canyon", "cardinal", "cedar", "cliff",
	"clover", "comet", "condor", "coral", "cougar", "crane", "creek", "cricket", "crow",
	"dahlia", "delta", "dingo", "dolphin", "dove", "dragon", "eagle", "ember", "falcon",
	"fern", "finch", "fjord", "flame", "forest", "fox", "galaxy", "garnet", "gazelle",
	"geyser", "glacier", "glade", "grove", "gull", "harbor", "hare", "hawk", "heron",
	"hill", "horizon", "ibis", "island", "jackal", "jaguar", "jasper", "juniper", "kestrel",
	"kite", "koala", "lagoon", "lake", "lantern", "lark", "laurel", "leaf", "lemur", "lily",
	"lion", "lotus", "lynx", "magpie", "maple", "marsh", "meadow", "meteor", "mink",
	"moose", "moth", "mountain", "nebula", "newt", "nightjar", "oak", "ocean", "orchid",
	"oriole", "osprey", "otter", "owl", "panda", "panther", "peak", "pebble", "pelican",
	"pine", "plover", "pond", "poppy", "prairie", "puffin", "quail", "quartz", "raven",
	"reed", "reef", "ridge", "river", "robin", "rook", "sable", "salmon", "sparrow",
	"spruce", "star", "stone", "stork", "summit", "swallow", "swan", "thistle", "thrush",
	"tiger", "trail", "trout", "tulip", "tundra", "valley", "violet", "vole", "walrus",
	"willow", "wolf", "wren", "yak", "yew", "zebra",
}
