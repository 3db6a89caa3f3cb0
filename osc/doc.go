// Copyright 2013 - 2015 Sebastian Ruml <sebastian.ruml@gmail.com>
// Copyright 2021 - 2022 Mendel Greenberg <mendel@chabad360.me>

//Package osc provides a codec, a forwarding engine and transports for OpenSoundControl packets.
//
//This implementation is based on the Open Sound Control 1.0 Specification (http://opensoundcontrol.org/spec-1_0.html).
//
//Open Sound Control (OSC) is an open, transport-independent, message-based protocol developed for communication among computers,
//sound synthesizers, and other multimedia devices.
//
//Features
//
//- Supports OSC messages with the following TypeTags:
//
//	'i' (int32)
//	'h' (int64)
//	'f' (float32)
//	'd' (float64)
//	's' (string)
//	'S' (Symbol)
//	'b' ([]byte)
//	'c' (Char)
//	'r' (Color)
//	'm' (MidiMessage)
//	't' (Timetag)
//	'g' (uuid.UUID, non-standard)
//	'v' (Version, non-standard)
//	'T' (true)
//	'F' (false)
//	'N' (nil)
//	'I' (Infinitum, decoded as float32 +Inf)
//	'[' ... ']' ([]interface{} arrays)
//
//- A Registry of codecs, so applications can add their own tags.
//
//- Lazy decoding: arguments and bundle elements are decoded on first access.
//
//- A Stream that unpacks bundles on a Scheduler, delaying nested bundles until their Timetag.
//
//- Full support for OSC Address matching and dispatching.
//
//- UDP and length-prefixed TCP transports.
//
//Packets
//
//The unit of transmission of OSC is an OSC Packet. Any application that sends OSC Packets is an OSC Client;
//any application that receives OSC Packets is an OSC Server.
//
//An OSC packet consists of its contents, a contiguous block of binary data.
//The size of an OSC packet is always 32-bit aligned.
//
//OSC packets come in two flavors:
//
//OSC Messages: An OSC message consists of an OSC address pattern and  zero or more OSC arguments.
//
//OSC Bundles: An OSC Bundle consists of an OSC Timetag, followed by zero or more OSC bundle elements.
//Each bundle element can be another OSC bundle (note this recursive definition: a bundle may contain bundles) or OSC message.
//
//Usage
//
//OSC client example:
//  client, err := osc.Dial("localhost:8765")
//  msg := osc.NewMessage("/osc/address", int32(111), true, "hello")
//  err = client.Send(msg)
//
//OSC server example:
//  loop := scheduler.NewLoop(nil)
//  stream := osc.NewStream(loop)
//
//  d := &osc.Dispatcher{}
//  d.AddMethodFunc("/message/address", func(msg *osc.Message) {
//      fmt.Println(msg)
//  })
//  d.Attach(stream)
//
//  server := &osc.Server{
//      Addr:   "127.0.0.1:8765",
//      Stream: stream,
//  }
//  server.ListenAndServe()
package osc
