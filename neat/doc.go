// Package neat provides a Go implementation of the NeuroEvolution of Augmenting Topologies (NEAT) algorithm.
//
// NEAT is a genetic algorithm for the generation of evolving artificial neural networks.
// It alters both the weighting parameters and structures of networks, attempting to find
// a balance between the fitness of evolved solutions and their diversity.
//
// This implementation follows neat-python (https://github.com/CodeReclaimers/neat-python):
// the same INI configuration file format, speciation, stagnation and reproduction rules,
// and the same reporter events.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("configs/config-feedforward.txt")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//	pop.AddReporter(neat.NewStdOutReporter(true, os.Stdout))
//	pop.AddReporter(neat.NewCheckpointer(pop, 5, "neat-checkpoint-"))
//
//	// Run for up to 50 generations with your fitness function.
//	best, err := pop.Run(evalGenomes, 50)
//	if err != nil {
//		log.Fatalf("Error running evolution: %v", err)
//	}
//	fmt.Println(best)
//
// Phenotypes are built with the nn subpackage.
package neat
