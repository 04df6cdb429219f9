/*
Package cdc is a constrained decoding core: it compiles a caller-supplied
grammar and/or schema into an incremental parser, turns parser state into a
per-step allow-mask over an LLM vocabulary, and drives a generate/validate/repair
loop against a Provider.

Package structure is as follows:

■ grammar: Package grammar implements the Grammar Compiler — declarative
grammars (EBNF with regex terminals, or a JSON-schema directive) compiled
into a CompiledGrammar automaton. Subpackage grammar/earley carries the
incremental recognizer that backs the Incremental Parser / Mask Engine.

■ cache: the three-layer cache hierarchy (compiled grammars, masks,
artifacts), including the coalesced-compile primitive.

■ acs: the Adaptive Constraint Store, blending learned soft weights into
hard masks.

■ decode: the Decode Orchestrator, driving one request through repeated
{logits, mask, sample, advance} steps against a Provider.

■ repair: the Validation-Repair Loop, refining a ConstraintPlan on
validation failure.

■ reqcompile: the Request Compiler, normalizing a caller request into a
ConstraintPlan.

■ provider, validate: external collaborator interfaces (§6 of the design
spec) plus the concrete adapters this module ships.

■ persist: durable snapshot storage for learned constraints and repair
history.

The base package contains data types used throughout all the other packages.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package cdc
