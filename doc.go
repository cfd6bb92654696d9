/*
Package forge hosts polled block state machines.

A block moves strictly forward through created, ready, running and done (or
failed) as a host ticks it. Blocks are built by type id from a registry,
connected by lines into an instance and scheduled by a processor:

	svc := example.NewBuilderService()
	catalog, _ := registry.NewCatalog(forge.EngineVersion, svc)

	def, _ := definition.Load("flow.yaml")
	inst, _ := def.Assemble(catalog)

	p := instance.NewProcessor()
	_ = p.AddInstance(ctx, inst, domain.StateReady)
	_, _ = p.RunUntilIdle(ctx, 100)

The forge command wraps the same steps: forge types, forge run and forge serve.
*/
package forge
