package questions

import (
	"strings"

	"github.com/rbright/rehearse/internal/interview"
)

var fallbackSets = map[string][]interview.Question{
	"python": {
		{
			Text:        "Explain the difference between a list and a tuple in Python.",
			KeyPoints:   []string{"Mutability", "Performance", "Use Cases"},
			ModelAnswer: "Lists are mutable, meaning their contents can be changed, while tuples are immutable. Tuples are generally faster and can be used as dictionary keys.",
		},
		{
			Text:        "What are Python decorators?",
			KeyPoints:   []string{"Functions as arguments", "@ syntax", "Modifying behavior"},
			ModelAnswer: "Decorators are functions that take another function as an argument, add some functionality to it, and then return the modified function. They are used to extend behavior without changing the original function's code.",
		},
		{
			Text:        "What is a virtual environment and why is it important?",
			KeyPoints:   []string{"Isolated environment", "Dependency management", "Version conflict"},
			ModelAnswer: "A virtual environment is a self-contained directory that holds a specific Python interpreter and its own set of installed packages. It's crucial for managing project-specific dependencies and avoiding version conflicts between different projects on the same machine.",
		},
		{
			Text:        "Explain the difference between == and is in Python.",
			KeyPoints:   []string{"Value equality", "Object identity", "Memory location"},
			ModelAnswer: "The '==' operator compares the values of two objects to see if they are equal. The 'is' operator checks if two variables point to the exact same object in memory.",
		},
		{
			Text:        "What are list comprehensions?",
			KeyPoints:   []string{"Concise syntax", "Creating lists", "Readability"},
			ModelAnswer: "List comprehensions provide a concise and often more readable way to create lists. For example, `[x*x for x in range(5)]` creates a list of squares more cleanly than a traditional for loop.",
		},
		{
			Text:        "What does the `__init__` method do in a Python class?",
			KeyPoints:   []string{"Constructor", "Initialize attributes", "Called on instantiation"},
			ModelAnswer: "The `__init__` method is the constructor for a Python class. It's automatically called when a new object (instance) of the class is created, and its primary role is to initialize the instance's attributes.",
		},
		{
			Text:        "What are *args and **kwargs in Python function definitions?",
			KeyPoints:   []string{"Variable-length arguments", "Non-keyword arguments", "Keyword arguments", "Tuple and Dictionary"},
			ModelAnswer: "`*args` allows a function to accept any number of non-keyword arguments, which are collected into a tuple. `**kwargs` allows a function to accept any number of keyword arguments, which are collected into a dictionary.",
		},
		{
			Text:        "Briefly describe the GIL (Global Interpreter Lock) in Python.",
			KeyPoints:   []string{"Mutex", "Allows one thread at a time", "Impacts multithreading", "Not an issue for multiprocessing"},
			ModelAnswer: "The Global Interpreter Lock, or GIL, is a mutex that protects access to Python objects, preventing multiple native threads from executing Python bytecode at the same time. This means that even on a multi-core processor, only one thread can be executing Python code at once, which can be a bottleneck for CPU-bound, multi-threaded programs.",
		},
	},
}

// Fallback returns a copy of the static set for domain, matched case-insensitively.
func Fallback(domain string) ([]interview.Question, bool) {
	set, ok := fallbackSets[strings.ToLower(strings.TrimSpace(domain))]
	if !ok {
		return nil, false
	}
	out := make([]interview.Question, len(set))
	for i, q := range set {
		q.KeyPoints = append([]string(nil), q.KeyPoints...)
		out[i] = q
	}
	return out, true
}
