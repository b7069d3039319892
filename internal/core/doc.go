// Package core holds the phone-side call model: devices, lines, the
// device/line bindings and channels, all kept in reference counted stores
// owned by a Core.
//
// Sessions feed decoded messages to Device.Handle after Core.Register
// accepted the phone. The general-purpose PBX drives the other side
// through Offer, Indicate, Hangup, OpenMedia and StartMedia, and is called
// back through the Bridge interface.
//
// Locks are taken in the order Device, Line, LineDevice, Channel. Messages
// to phones and Bridge calls are made with no channel lock held, from a
// ChannelInfo snapshot.
package core
